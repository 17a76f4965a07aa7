package http

import (
	"errors"
	"net/http"

	"kfz/internal/core"
	"kfz/internal/storage"
)

type maintenancePage struct {
	Vehicles        []core.Vehicle
	SelectedVehicle int64
	Types           []maintenanceTypeOption
	Records         []maintenanceRow
	TotalCost       string
	Breakdown       []breakdownRow
	FormError       string

	// Only set when a single vehicle is selected.
	CurrentOdometer string
	Upcoming        []dueRow
}

type maintenanceTypeOption struct {
	Value core.MaintenanceType
	Label string
}

type maintenanceRow struct {
	ID           int64
	Date         string
	VehicleLabel string
	TypeLabel    string
	Odometer     string
	Cost         string
	Description  string
	NextDate     string
	NextKM       string
}

type breakdownRow struct {
	Label     string
	Count     int
	TotalCost string
	AvgCost   string
}

func maintenanceTypeOptions() []maintenanceTypeOption {
	order := []core.MaintenanceType{
		core.MaintenanceMinor,
		core.MaintenanceMajor,
		core.MaintenanceTUV,
		core.MaintenanceHU,
		core.MaintenanceOther,
	}
	out := make([]maintenanceTypeOption, 0, len(order))
	for _, t := range order {
		out = append(out, maintenanceTypeOption{Value: t, Label: t.Label()})
	}
	return out
}

func (s *Server) handleMaintenance(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderMaintenancePage(w, r, maintenancePage{})
	case http.MethodPost:
		s.handleMaintenanceCreate(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) renderMaintenancePage(w http.ResponseWriter, r *http.Request, page maintenancePage) {
	ctx := r.Context()

	vehicles, err := s.store.ListVehicles(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Vehicle list failed", "error", err)
		http.Error(w, "Fahrzeuge konnten nicht geladen werden", http.StatusInternalServerError)
		return
	}
	page.Vehicles = vehicles
	page.Types = maintenanceTypeOptions()

	labels := make(map[int64]string, len(vehicles))
	for _, v := range vehicles {
		labels[v.ID] = v.Make + " " + v.Model + " (" + v.Plate + ")"
	}

	var records []core.MaintenanceRecord
	if id, ok := vehicleIDFromRequest(r); ok {
		page.SelectedVehicle = id
		records, err = s.store.ListMaintenanceRecords(ctx, id)
		if odo, odoErr := s.store.CurrentOdometer(ctx, id); odoErr != nil {
			s.log.ErrorContext(ctx, "Current odometer failed", "error", odoErr, "id", id)
		} else {
			page.CurrentOdometer = formatGermanNumber(float64(odo), 0) + " km"
		}
		page.Upcoming = s.upcomingRows(r, id)
	} else {
		records, err = s.store.ListAllMaintenanceRecords(ctx)
	}
	if err != nil {
		s.log.ErrorContext(ctx, "Maintenance list failed", "error", err)
		http.Error(w, "Wartungseinträge konnten nicht geladen werden", http.StatusInternalServerError)
		return
	}

	for _, m := range records {
		row := maintenanceRow{
			ID:           m.ID,
			Date:         core.FormatGermanDate(m.DatePerformed),
			VehicleLabel: labels[m.VehicleID],
			TypeLabel:    m.Type.Label(),
			Cost:         formatEuros(m.Cost),
			Description:  m.Description,
			NextDate:     core.FormatGermanDate(m.NextDueDate),
		}
		if m.Odometer != nil {
			row.Odometer = formatGermanNumber(float64(*m.Odometer), 0)
		}
		if m.NextDueKM != nil {
			row.NextKM = formatGermanNumber(float64(*m.NextDueKM), 0)
		}
		page.Records = append(page.Records, row)
	}

	page.TotalCost = formatEuros(core.TotalMaintenanceCost(records))
	for _, b := range core.BreakdownByType(records) {
		page.Breakdown = append(page.Breakdown, breakdownRow{
			Label:     b.Type.Label(),
			Count:     b.Count,
			TotalCost: formatEuros(b.TotalCost),
			AvgCost:   formatEuros(b.AvgCost()),
		})
	}

	s.render(w, r, "maintenance.html", page)
}

func (s *Server) handleMaintenanceCreate(w http.ResponseWriter, r *http.Request) {
	rec, formErr := maintenanceFromForm(r)
	if formErr != "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.renderMaintenancePage(w, r, maintenancePage{FormError: formErr})
		return
	}
	if _, err := s.store.GetVehicle(r.Context(), rec.VehicleID); err != nil {
		http.Redirect(w, r, "/vehicles", http.StatusSeeOther)
		return
	}
	id, err := s.store.CreateMaintenanceRecord(r.Context(), rec)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Maintenance create failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		s.renderMaintenancePage(w, r, maintenancePage{FormError: "Speichern fehlgeschlagen"})
		return
	}
	s.log.InfoContext(r.Context(), "Maintenance record created", "id", id, "vehicle_id", rec.VehicleID, "type", rec.Type)
	http.Redirect(w, r, "/maintenance?vehicle_id="+itoa(rec.VehicleID), http.StatusSeeOther)
}

// maintenanceFromForm builds a maintenance record from form fields. The
// returned string is a German validation message, empty on success.
func maintenanceFromForm(r *http.Request) (core.MaintenanceRecord, string) {
	if err := r.ParseForm(); err != nil {
		return core.MaintenanceRecord{}, "Ungültige Anfrage"
	}
	vehicleID, ok := vehicleIDFromRequest(r)
	if !ok {
		return core.MaintenanceRecord{}, "Fahrzeug fehlt"
	}

	rec := core.MaintenanceRecord{
		VehicleID:     vehicleID,
		Type:          core.MaintenanceType(r.Form.Get("maintenance_type")),
		DatePerformed: formDate(r, "date_performed"),
		Odometer:      formOptionalInt(r, "odometer"),
		Cost:          formDecimal(r, "cost"),
		Description:   sanitizeInput(r.Form.Get("description")),
		NextDueDate:   formDate(r, "next_maintenance_date"),
		NextDueKM:     formOptionalInt(r, "next_maintenance_km"),
	}
	if err := rec.Validate(); err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidType):
			return rec, "Ungültiger Wartungstyp"
		case errors.Is(err, core.ErrInvalidDate):
			return rec, "Ungültiges Datum"
		case errors.Is(err, core.ErrInvalidOdometer):
			return rec, "Ungültiger Kilometerstand"
		case errors.Is(err, core.ErrInvalidCost):
			return rec, "Ungültige Kosten"
		}
		return rec, "Ungültige Eingabe"
	}
	return rec, ""
}

func (s *Server) handleMaintenanceDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, ok := parseID(r, "id")
	if !ok {
		http.Redirect(w, r, "/maintenance", http.StatusSeeOther)
		return
	}
	if err := s.store.DeleteMaintenanceRecord(r.Context(), id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.ErrorContext(r.Context(), "Maintenance delete failed", "error", err, "id", id)
		http.Error(w, "Löschen fehlgeschlagen", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/maintenance", http.StatusSeeOther)
}
