package http

import (
	"encoding/json"
	"html/template"
	"net/http"
	"sort"

	"kfz/internal/core"
)

const (
	dashboardMonths       = 6
	dashboardActivityRows = 10
)

type dashboardPage struct {
	TotalVehicles int
	Available     int
	InUse         int
	InMaintenance int
	DueSoon       int

	TotalFuelCost        string
	TotalMaintenanceCost string

	// Chart.js datasets, rendered into inline <script> blocks.
	MonthlyCostsJSON   template.JS
	CostsByVehicleJSON template.JS

	RecentActivity []activityRow
}

type activityRow struct {
	Date    string
	Vehicle string
	Kind    string
	Detail  string
	Cost    string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	var page dashboardPage

	byStatus, err := s.store.CountVehiclesByStatus(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Vehicle status counts failed", "error", err)
	}
	page.Available = byStatus[core.StatusAvailable]
	page.InUse = byStatus[core.StatusInUse]
	page.InMaintenance = byStatus[core.StatusMaintenance]
	for _, n := range byStatus {
		page.TotalVehicles += n
	}

	if n, err := s.store.CountDueSoonMaintenance(ctx, core.DueSoonDays); err != nil {
		s.log.ErrorContext(ctx, "Due-soon count failed", "error", err)
	} else {
		page.DueSoon = n
	}

	if total, err := s.store.TotalFuelCost(ctx); err != nil {
		s.log.ErrorContext(ctx, "Fuel total failed", "error", err)
	} else {
		page.TotalFuelCost = formatEuros(total)
	}
	if total, err := s.store.TotalMaintenanceCost(ctx); err != nil {
		s.log.ErrorContext(ctx, "Maintenance total failed", "error", err)
	} else {
		page.TotalMaintenanceCost = formatEuros(total)
	}

	page.MonthlyCostsJSON = s.monthlyCostsJSON(r)
	page.CostsByVehicleJSON = s.costsByVehicleJSON(r)

	activity, err := s.store.RecentActivity(ctx, dashboardActivityRows)
	if err != nil {
		s.log.ErrorContext(ctx, "Recent activity failed", "error", err)
	}
	for _, a := range activity {
		detail := a.Detail
		if a.Kind == "wartung" {
			detail = core.MaintenanceType(a.Detail).Label()
		}
		page.RecentActivity = append(page.RecentActivity, activityRow{
			Date:    core.FormatGermanDate(a.Date),
			Vehicle: a.VehicleLabel,
			Kind:    a.Kind,
			Detail:  detail,
			Cost:    formatEuros(a.Cost),
		})
	}

	s.render(w, r, "dashboard.html", page)
}

// monthlyCostsJSON merges fuel and maintenance spending per month into one
// Chart.js dataset payload.
func (s *Server) monthlyCostsJSON(r *http.Request) template.JS {
	ctx := r.Context()

	fuel, err := s.store.MonthlyFuelCosts(ctx, dashboardMonths)
	if err != nil {
		s.log.ErrorContext(ctx, "Monthly fuel costs failed", "error", err)
	}
	maint, err := s.store.MonthlyMaintenanceCosts(ctx, dashboardMonths)
	if err != nil {
		s.log.ErrorContext(ctx, "Monthly maintenance costs failed", "error", err)
	}

	months := make(map[string]bool)
	fuelBy := make(map[string]float64)
	maintBy := make(map[string]float64)
	for _, m := range fuel {
		months[m.Month] = true
		fuelBy[m.Month] = m.Cost
	}
	for _, m := range maint {
		months[m.Month] = true
		maintBy[m.Month] = m.Cost
	}

	labels := make([]string, 0, len(months))
	for m := range months {
		labels = append(labels, m)
	}
	sort.Strings(labels)

	payload := struct {
		Labels      []string  `json:"labels"`
		Fuel        []float64 `json:"fuel"`
		Maintenance []float64 `json:"maintenance"`
	}{Labels: labels}
	for _, m := range labels {
		payload.Fuel = append(payload.Fuel, fuelBy[m])
		payload.Maintenance = append(payload.Maintenance, maintBy[m])
	}
	return s.marshalJS(r, payload)
}

func (s *Server) costsByVehicleJSON(r *http.Request) template.JS {
	byVehicle, err := s.store.FuelCostsByVehicle(r.Context())
	if err != nil {
		s.log.ErrorContext(r.Context(), "Fuel costs by vehicle failed", "error", err)
	}
	payload := struct {
		Labels []string  `json:"labels"`
		Costs  []float64 `json:"costs"`
	}{}
	for _, vc := range byVehicle {
		payload.Labels = append(payload.Labels, vc.Label)
		payload.Costs = append(payload.Costs, vc.Cost)
	}
	return s.marshalJS(r, payload)
}

func (s *Server) marshalJS(r *http.Request, v any) template.JS {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Chart payload marshal failed", "error", err)
		return template.JS("null")
	}
	return template.JS(b)
}
