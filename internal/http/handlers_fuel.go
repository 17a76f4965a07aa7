package http

import (
	"errors"
	"net/http"

	"kfz/internal/core"
	"kfz/internal/storage"
)

const importErrorDisplayLimit = 10

type fuelPage struct {
	Vehicles        []core.Vehicle
	SelectedVehicle int64
	FuelTypes       []string
	Records         []fuelRow
	FormError       string

	// Stats is only set when a single vehicle is selected.
	Stats *fuelStatsView

	ImportSummary *importSummary
}

type fuelRow struct {
	ID            int64
	Date          string
	VehicleLabel  string
	Odometer      string
	Liters        string
	PricePerLiter string
	TotalCost     string
	FuelType      string
	Note          string
}

type importSummary struct {
	Accepted int
	Rejected int
	Messages []string
}

func (s *Server) handleFuel(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderFuelPage(w, r, fuelPage{})
	case http.MethodPost:
		s.handleFuelCreate(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) renderFuelPage(w http.ResponseWriter, r *http.Request, page fuelPage) {
	ctx := r.Context()

	vehicles, err := s.store.ListVehicles(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Vehicle list failed", "error", err)
		http.Error(w, "Fahrzeuge konnten nicht geladen werden", http.StatusInternalServerError)
		return
	}
	page.Vehicles = vehicles
	page.FuelTypes = s.fuelTypes

	labels := make(map[int64]string, len(vehicles))
	for _, v := range vehicles {
		labels[v.ID] = v.Make + " " + v.Model + " (" + v.Plate + ")"
	}

	var records []core.FuelRecord
	if id, ok := vehicleIDFromRequest(r); ok {
		page.SelectedVehicle = id
		records, err = s.store.ListFuelRecords(ctx, id)
	} else {
		records, err = s.store.ListAllFuelRecords(ctx)
	}
	if err != nil {
		s.log.ErrorContext(ctx, "Fuel list failed", "error", err)
		http.Error(w, "Tankeinträge konnten nicht geladen werden", http.StatusInternalServerError)
		return
	}

	if page.SelectedVehicle != 0 {
		stats := buildFuelStatsView(core.ComputeFuelStats(records))
		page.Stats = &stats
	}

	for _, f := range records {
		page.Records = append(page.Records, fuelRow{
			ID:            f.ID,
			Date:          core.FormatGermanDate(f.Date),
			VehicleLabel:  labels[f.VehicleID],
			Odometer:      formatGermanNumber(float64(f.Odometer), 0),
			Liters:        formatGermanNumber(f.Liters, 2),
			PricePerLiter: formatGermanNumber(f.PricePerLiter, 3),
			TotalCost:     formatEuros(f.TotalCost),
			FuelType:      f.FuelType,
			Note:          f.Note,
		})
	}

	s.render(w, r, "fuel.html", page)
}

func (s *Server) handleFuelCreate(w http.ResponseWriter, r *http.Request) {
	rec, formErr := s.fuelRecordFromForm(r)
	if formErr != "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.renderFuelPage(w, r, fuelPage{FormError: formErr})
		return
	}
	if _, err := s.store.GetVehicle(r.Context(), rec.VehicleID); err != nil {
		http.Redirect(w, r, "/vehicles", http.StatusSeeOther)
		return
	}
	id, err := s.store.CreateFuelRecord(r.Context(), rec)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Fuel create failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		s.renderFuelPage(w, r, fuelPage{FormError: "Speichern fehlgeschlagen"})
		return
	}
	s.log.InfoContext(r.Context(), "Fuel record created", "id", id, "vehicle_id", rec.VehicleID)
	http.Redirect(w, r, "/fuel?vehicle_id="+itoa(rec.VehicleID), http.StatusSeeOther)
}

// fuelRecordFromForm builds a fuel record from form fields, including the
// vehicle selection. The returned string is a German validation message,
// empty on success.
func (s *Server) fuelRecordFromForm(r *http.Request) (core.FuelRecord, string) {
	if err := r.ParseForm(); err != nil {
		return core.FuelRecord{}, "Ungültige Anfrage"
	}
	vehicleID, ok := vehicleIDFromRequest(r)
	if !ok {
		return core.FuelRecord{}, "Fahrzeug fehlt"
	}
	rec, msg := s.fuelFieldsFromForm(r)
	rec.VehicleID = vehicleID
	return rec, msg
}

// fuelFieldsFromForm reads everything except the vehicle selection. The
// caller must have parsed the form already.
func (s *Server) fuelFieldsFromForm(r *http.Request) (core.FuelRecord, string) {
	rec := core.FuelRecord{
		Odometer:             formInt(r, "odometer"),
		Date:                 formDate(r, "date"),
		PricePerLiter:        formDecimal(r, "price_per_liter"),
		Liters:               formDecimal(r, "liters"),
		FuelType:             sanitizeInput(r.Form.Get("fuel_type")),
		DisplayedConsumption: formOptionalFloat(r, "displayed_consumption"),
		EngineHours:          formOptionalFloat(r, "engine_hours"),
		Note:                 sanitizeInput(r.Form.Get("note")),
	}
	if rec.FuelType == "" {
		rec.FuelType = s.defaultFuelType()
	}
	if err := rec.Validate(); err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidOdometer):
			return rec, "Ungültiger Kilometerstand"
		case errors.Is(err, core.ErrInvalidDate):
			return rec, "Ungültiges Datum"
		case errors.Is(err, core.ErrInvalidPrice):
			return rec, "Ungültiger Literpreis"
		case errors.Is(err, core.ErrInvalidLiters):
			return rec, "Ungültige Spritmenge"
		}
		return rec, "Ungültige Eingabe"
	}
	rec.ComputeTotalCost()
	return rec, ""
}

func (s *Server) defaultFuelType() string {
	if len(s.fuelTypes) > 0 {
		return s.fuelTypes[0]
	}
	return "benzin"
}

type fuelEditPage struct {
	Record    core.FuelRecord
	DateISO   string
	FuelTypes []string
	Error     string
}

func (s *Server) handleFuelEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		http.Redirect(w, r, "/fuel", http.StatusSeeOther)
		return
	}
	existing, err := s.store.GetFuelRecord(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Redirect(w, r, "/fuel", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.log.ErrorContext(r.Context(), "Fuel lookup failed", "error", err, "id", id)
		http.Error(w, "Tankeintrag konnte nicht geladen werden", http.StatusInternalServerError)
		return
	}

	page := fuelEditPage{Record: existing, DateISO: existing.Date.ISO(), FuelTypes: s.fuelTypes}
	switch r.Method {
	case http.MethodGet:
		s.render(w, r, "fuel_edit.html", page)
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			page.Error = "Ungültige Anfrage"
			s.render(w, r, "fuel_edit.html", page)
			return
		}
		rec, formErr := s.fuelFieldsFromForm(r)
		rec.ID = id
		rec.VehicleID = existing.VehicleID
		if formErr != "" {
			page.Record = rec
			page.DateISO = rec.Date.ISO()
			page.Error = formErr
			w.WriteHeader(http.StatusUnprocessableEntity)
			s.render(w, r, "fuel_edit.html", page)
			return
		}
		if err := s.store.UpdateFuelRecord(r.Context(), rec); err != nil {
			s.log.ErrorContext(r.Context(), "Fuel update failed", "error", err, "id", id)
			page.Record = rec
			page.Error = "Speichern fehlgeschlagen"
			w.WriteHeader(http.StatusInternalServerError)
			s.render(w, r, "fuel_edit.html", page)
			return
		}
		http.Redirect(w, r, "/fuel?vehicle_id="+itoa(existing.VehicleID), http.StatusSeeOther)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleFuelDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, ok := parseID(r, "id")
	if !ok {
		http.Redirect(w, r, "/fuel", http.StatusSeeOther)
		return
	}
	if err := s.store.DeleteFuelRecord(r.Context(), id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.ErrorContext(r.Context(), "Fuel delete failed", "error", err, "id", id)
		http.Error(w, "Löschen fehlgeschlagen", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/fuel", http.StatusSeeOther)
}

// handleFuelImport accepts a multipart CSV upload and renders the fuel page
// with a per-row import summary. No redirect, so the summary survives.
func (s *Server) handleFuelImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		s.log.WarnContext(r.Context(), "Multipart parse failed", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		s.renderFuelPage(w, r, fuelPage{FormError: "Upload fehlgeschlagen oder Datei zu groß"})
		return
	}

	vehicleID, ok := vehicleIDFromRequest(r)
	if !ok {
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.renderFuelPage(w, r, fuelPage{FormError: "Fahrzeug fehlt"})
		return
	}
	if _, err := s.store.GetVehicle(r.Context(), vehicleID); err != nil {
		http.Redirect(w, r, "/vehicles", http.StatusSeeOther)
		return
	}

	file, _, err := r.FormFile("csv_file")
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.renderFuelPage(w, r, fuelPage{FormError: "Keine Datei ausgewählt"})
		return
	}
	defer file.Close()

	result, err := s.importer.Import(r.Context(), vehicleID, file)
	if err != nil {
		s.log.ErrorContext(r.Context(), "CSV import failed", "error", err, "vehicle_id", vehicleID)
		w.WriteHeader(http.StatusInternalServerError)
		s.renderFuelPage(w, r, fuelPage{FormError: "Import fehlgeschlagen"})
		return
	}

	s.log.InfoContext(r.Context(), "CSV import finished",
		"batch_id", result.BatchID,
		"vehicle_id", vehicleID,
		"accepted", result.Accepted,
		"rejected", result.Rejected())

	s.renderFuelPage(w, r, fuelPage{
		ImportSummary: &importSummary{
			Accepted: result.Accepted,
			Rejected: result.Rejected(),
			Messages: result.ErrorMessages(importErrorDisplayLimit),
		},
	})
}
