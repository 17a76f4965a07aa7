package http

import (
	"errors"
	"html/template"
	"net/http"

	"kfz/internal/core"
	"kfz/internal/storage"
)

type vehiclesPage struct {
	Vehicles []core.Vehicle
	Error    string
}

func (s *Server) handleVehicles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	vehicles, err := s.store.ListVehicles(r.Context())
	if err != nil {
		s.log.ErrorContext(r.Context(), "Vehicle list failed", "error", err)
		http.Error(w, "Fahrzeuge konnten nicht geladen werden", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "vehicles.html", vehiclesPage{Vehicles: vehicles})
}

type vehicleFormPage struct {
	Title   string
	Action  string
	Vehicle core.Vehicle
	Error   string
}

func (s *Server) handleVehicleNew(w http.ResponseWriter, r *http.Request) {
	page := vehicleFormPage{
		Title:   "Fahrzeug anlegen",
		Action:  "/vehicles/new",
		Vehicle: core.Vehicle{Status: core.StatusAvailable},
	}
	switch r.Method {
	case http.MethodGet:
		s.render(w, r, "vehicle_form.html", page)
	case http.MethodPost:
		v, formErr := vehicleFromForm(r)
		if formErr != "" {
			page.Vehicle = v
			page.Error = formErr
			w.WriteHeader(http.StatusUnprocessableEntity)
			s.render(w, r, "vehicle_form.html", page)
			return
		}
		id, err := s.store.CreateVehicle(r.Context(), v)
		if err != nil {
			s.log.ErrorContext(r.Context(), "Vehicle create failed", "error", err)
			page.Vehicle = v
			page.Error = "Speichern fehlgeschlagen"
			w.WriteHeader(http.StatusInternalServerError)
			s.render(w, r, "vehicle_form.html", page)
			return
		}
		s.log.InfoContext(r.Context(), "Vehicle created", "id", id, "plate", v.Plate)
		http.Redirect(w, r, "/vehicles", http.StatusSeeOther)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleVehicleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleIDFromRequest(r)
	if !ok {
		http.Redirect(w, r, "/vehicles", http.StatusSeeOther)
		return
	}

	existing, err := s.store.GetVehicle(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Redirect(w, r, "/vehicles", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.log.ErrorContext(r.Context(), "Vehicle lookup failed", "error", err, "id", id)
		http.Error(w, "Fahrzeug konnte nicht geladen werden", http.StatusInternalServerError)
		return
	}

	page := vehicleFormPage{
		Title:   "Fahrzeug bearbeiten",
		Action:  "/vehicles/edit",
		Vehicle: existing,
	}
	switch r.Method {
	case http.MethodGet:
		s.render(w, r, "vehicle_form.html", page)
	case http.MethodPost:
		v, formErr := vehicleFromForm(r)
		v.ID = id
		if formErr != "" {
			page.Vehicle = v
			page.Error = formErr
			w.WriteHeader(http.StatusUnprocessableEntity)
			s.render(w, r, "vehicle_form.html", page)
			return
		}
		if err := s.store.UpdateVehicle(r.Context(), v); err != nil {
			s.log.ErrorContext(r.Context(), "Vehicle update failed", "error", err, "id", id)
			page.Vehicle = v
			page.Error = "Speichern fehlgeschlagen"
			w.WriteHeader(http.StatusInternalServerError)
			s.render(w, r, "vehicle_form.html", page)
			return
		}
		http.Redirect(w, r, "/vehicles", http.StatusSeeOther)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleVehicleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, ok := vehicleIDFromRequest(r)
	if !ok {
		http.Redirect(w, r, "/vehicles", http.StatusSeeOther)
		return
	}
	if err := s.store.DeleteVehicle(r.Context(), id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.ErrorContext(r.Context(), "Vehicle delete failed", "error", err, "id", id)
		http.Error(w, "Löschen fehlgeschlagen", http.StatusInternalServerError)
		return
	}
	s.log.InfoContext(r.Context(), "Vehicle deleted", "id", id)
	http.Redirect(w, r, "/vehicles", http.StatusSeeOther)
}

// vehicleFromForm builds a vehicle from form fields. The returned string is
// a German validation message, empty on success.
func vehicleFromForm(r *http.Request) (core.Vehicle, string) {
	if err := r.ParseForm(); err != nil {
		return core.Vehicle{}, "Ungültige Anfrage"
	}
	v := core.Vehicle{
		Make:   sanitizeInput(r.Form.Get("make")),
		Model:  sanitizeInput(r.Form.Get("model")),
		Plate:  sanitizeInput(r.Form.Get("plate")),
		Year:   int(formInt(r, "year")),
		Status: core.VehicleStatus(r.Form.Get("status")),
	}
	if err := v.Validate(); err != nil {
		switch {
		case errors.Is(err, core.ErrEmptyMake):
			return v, "Marke darf nicht leer sein"
		case errors.Is(err, core.ErrEmptyModel):
			return v, "Modell darf nicht leer sein"
		case errors.Is(err, core.ErrEmptyPlate):
			return v, "Kennzeichen darf nicht leer sein"
		case errors.Is(err, core.ErrInvalidYear):
			return v, "Ungültiges Baujahr"
		case errors.Is(err, core.ErrInvalidStatus):
			return v, "Ungültiger Status"
		}
		return v, "Ungültige Eingabe"
	}
	return v, ""
}

type vehicleDetailPage struct {
	Vehicle         core.Vehicle
	CurrentOdometer string
	Error           string
	FormError       string

	MileageRecords []mileageRow
	FuelStats      fuelStatsView
	Upcoming       []dueRow

	OdometerJSON template.JS
}

type mileageRow struct {
	Date     string
	Odometer string
	Note     string
}

type fuelStatsView struct {
	FillUps        int
	TotalFuel      string
	TotalCost      string
	TotalKM        string
	AvgConsumption string // "N/A" when undefined
	Intervals      []intervalRow
}

type intervalRow struct {
	From        string
	To          string
	KMDriven    string
	FuelUsed    string
	Consumption string
}

type dueRow struct {
	Type        string
	NextDate    string
	NextKM      string
	Description string
	Badge       string // "overdue", "due-soon" or ""
}

func (s *Server) handleVehicleDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleIDFromRequest(r)
	if !ok {
		http.Redirect(w, r, "/vehicles", http.StatusSeeOther)
		return
	}
	ctx := r.Context()

	vehicle, err := s.store.GetVehicle(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Redirect(w, r, "/vehicles", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.log.ErrorContext(ctx, "Vehicle lookup failed", "error", err, "id", id)
		http.Error(w, "Fahrzeug konnte nicht geladen werden", http.StatusInternalServerError)
		return
	}

	var formError string
	if r.Method == http.MethodPost {
		formError = s.addMileageRecord(r, id)
		if formError == "" {
			// Redirect so a reload does not resubmit the form.
			http.Redirect(w, r, "/vehicles/detail?id="+itoa(id), http.StatusSeeOther)
			return
		}
	}

	page := vehicleDetailPage{Vehicle: vehicle, FormError: formError}

	if odo, err := s.store.CurrentOdometer(ctx, id); err != nil {
		s.log.ErrorContext(ctx, "Current odometer failed", "error", err, "id", id)
	} else {
		page.CurrentOdometer = formatGermanNumber(float64(odo), 0) + " km"
	}

	mileage, err := s.store.ListMileageRecords(ctx, id)
	if err != nil {
		s.log.ErrorContext(ctx, "Mileage list failed", "error", err, "id", id)
	}
	for _, m := range mileage {
		page.MileageRecords = append(page.MileageRecords, mileageRow{
			Date:     core.FormatGermanDate(m.Date),
			Odometer: formatGermanNumber(float64(m.Odometer), 0),
			Note:     m.Note,
		})
	}

	fuel, err := s.store.ListFuelRecords(ctx, id)
	if err != nil {
		s.log.ErrorContext(ctx, "Fuel list failed", "error", err, "id", id)
	}
	page.FuelStats = buildFuelStatsView(core.ComputeFuelStats(fuel))

	page.Upcoming = s.upcomingRows(r, id)

	history, err := s.store.OdometerHistory(ctx, id)
	if err != nil {
		s.log.ErrorContext(ctx, "Odometer history failed", "error", err, "id", id)
	}
	chart := struct {
		Labels []string `json:"labels"`
		Values []int64  `json:"values"`
	}{}
	for _, p := range history {
		chart.Labels = append(chart.Labels, p.Date.ISO())
		chart.Values = append(chart.Values, p.Odometer)
	}
	page.OdometerJSON = s.marshalJS(r, chart)

	s.render(w, r, "vehicle_detail.html", page)
}

func (s *Server) addMileageRecord(r *http.Request, vehicleID int64) string {
	if err := r.ParseForm(); err != nil {
		return "Ungültige Anfrage"
	}
	rec := core.MileageRecord{
		VehicleID: vehicleID,
		Odometer:  formInt(r, "odometer"),
		Date:      formDate(r, "date"),
		Note:      sanitizeInput(r.Form.Get("note")),
	}
	if err := rec.Validate(); err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidOdometer):
			return "Ungültiger Kilometerstand"
		case errors.Is(err, core.ErrInvalidDate):
			return "Ungültiges Datum"
		}
		return "Ungültige Eingabe"
	}
	if _, err := s.store.CreateMileageRecord(r.Context(), rec); err != nil {
		s.log.ErrorContext(r.Context(), "Mileage create failed", "error", err, "vehicle_id", vehicleID)
		return "Speichern fehlgeschlagen"
	}
	return ""
}

func (s *Server) upcomingRows(r *http.Request, vehicleID int64) []dueRow {
	ctx := r.Context()
	upcoming, err := s.store.UpcomingMaintenance(ctx, vehicleID)
	if err != nil {
		s.log.ErrorContext(ctx, "Upcoming maintenance failed", "error", err, "vehicle_id", vehicleID)
		return nil
	}
	odo, err := s.store.CurrentOdometer(ctx, vehicleID)
	if err != nil {
		s.log.ErrorContext(ctx, "Current odometer failed", "error", err, "vehicle_id", vehicleID)
	}

	var rows []dueRow
	for _, st := range core.CheckDue(upcoming, odo, timeNow()) {
		row := dueRow{
			Type:        st.Record.Type.Label(),
			NextDate:    core.FormatGermanDate(st.Record.NextDueDate),
			Description: st.Record.Description,
		}
		if st.Record.NextDueKM != nil {
			row.NextKM = formatGermanNumber(float64(*st.Record.NextDueKM), 0) + " km"
		}
		switch {
		case st.Overdue:
			row.Badge = "overdue"
		case st.DueSoonByDate || st.DueSoonByKM:
			row.Badge = "due-soon"
		}
		rows = append(rows, row)
	}
	return rows
}

func buildFuelStatsView(stats core.FuelStats) fuelStatsView {
	view := fuelStatsView{
		FillUps:        stats.FillUps,
		TotalFuel:      formatGermanNumber(stats.TotalFuel, 1) + " L",
		TotalCost:      formatEuros(stats.TotalCost),
		TotalKM:        formatGermanNumber(float64(stats.TotalKM), 0) + " km",
		AvgConsumption: "N/A",
	}
	if stats.AvgValid {
		view.AvgConsumption = formatGermanNumber(stats.AvgConsumption, 2) + " L/100km"
	}
	for _, iv := range stats.Intervals {
		view.Intervals = append(view.Intervals, intervalRow{
			From:        core.FormatGermanDate(iv.FromDate),
			To:          core.FormatGermanDate(iv.ToDate),
			KMDriven:    formatGermanNumber(float64(iv.KMDriven), 0),
			FuelUsed:    formatGermanNumber(iv.FuelUsed, 1),
			Consumption: formatGermanNumber(iv.Consumption, 2),
		})
	}
	return view
}
