package http

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"kfz/internal/auth"
	"kfz/internal/core"
	"kfz/internal/csvimport"
	"kfz/internal/storage"
)

// stubStore satisfies Store; tests embed it and override what they need.
type stubStore struct {
	Store
	vehicles    []core.Vehicle
	fuelRecords []core.FuelRecord
	maintenance []core.MaintenanceRecord
	odometer    int64
}

func (s *stubStore) ListVehicles(ctx context.Context) ([]core.Vehicle, error) {
	return s.vehicles, nil
}

func (s *stubStore) GetVehicle(ctx context.Context, id int64) (core.Vehicle, error) {
	for _, v := range s.vehicles {
		if v.ID == id {
			return v, nil
		}
	}
	return core.Vehicle{}, storage.ErrNotFound
}

func (s *stubStore) ListAllFuelRecords(ctx context.Context) ([]core.FuelRecord, error) {
	return s.fuelRecords, nil
}

func (s *stubStore) ListFuelRecords(ctx context.Context, vehicleID int64) ([]core.FuelRecord, error) {
	var out []core.FuelRecord
	for _, f := range s.fuelRecords {
		if f.VehicleID == vehicleID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *stubStore) CreateFuelRecord(ctx context.Context, f core.FuelRecord) (int64, error) {
	f.ID = int64(len(s.fuelRecords) + 1)
	s.fuelRecords = append(s.fuelRecords, f)
	return f.ID, nil
}

func (s *stubStore) ListMaintenanceRecords(ctx context.Context, vehicleID int64) ([]core.MaintenanceRecord, error) {
	var out []core.MaintenanceRecord
	for _, m := range s.maintenance {
		if m.VehicleID == vehicleID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubStore) ListAllMaintenanceRecords(ctx context.Context) ([]core.MaintenanceRecord, error) {
	return s.maintenance, nil
}

func (s *stubStore) UpcomingMaintenance(ctx context.Context, vehicleID int64) ([]core.MaintenanceRecord, error) {
	var out []core.MaintenanceRecord
	for _, m := range s.maintenance {
		if m.VehicleID == vehicleID && (m.NextDueKM != nil || !m.NextDueDate.IsZero()) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubStore) CurrentOdometer(ctx context.Context, vehicleID int64) (int64, error) {
	return s.odometer, nil
}

func (s *stubStore) GetUserByUsername(ctx context.Context, username string) (storage.User, error) {
	if username != "admin" {
		return storage.User{}, storage.ErrNotFound
	}
	hash, _ := auth.HashPassword("geheim")
	return storage.User{ID: 1, Username: "admin", PasswordHash: hash}, nil
}

func newTestServer(t *testing.T, store Store) *Server {
	t.Helper()
	sessions := auth.NewSessionStore(time.Hour)
	importer := csvimport.New(store, "benzin")
	srv := NewServer(":0", store, sessions, importer, Options{
		FuelTypes: []string{"benzin", "diesel"},
	})
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

// multipartBuilder wraps mime/multipart for terse upload tests.
type multipartBuilder struct {
	w *multipart.Writer
}

func newMultipart(dst io.Writer) *multipartBuilder {
	return &multipartBuilder{w: multipart.NewWriter(dst)}
}

func (m *multipartBuilder) field(name, value string) {
	_ = m.w.WriteField(name, value)
}

func (m *multipartBuilder) file(name, filename, content string) {
	part, err := m.w.CreateFormFile(name, filename)
	if err == nil {
		_, _ = io.WriteString(part, content)
	}
}

func (m *multipartBuilder) close() string {
	_ = m.w.Close()
	return m.w.FormDataContentType()
}

func loggedInCookie(t *testing.T, srv *Server) *http.Cookie {
	t.Helper()
	token, err := srv.sessions.Create("admin")
	if err != nil {
		t.Fatal(err)
	}
	return &http.Cookie{Name: sessionCookie, Value: token}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, &stubStore{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	srv := newTestServer(t, &stubStore{})
	for _, path := range []string{"/", "/vehicles", "/fuel", "/maintenance"} {
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusSeeOther {
			t.Errorf("%s: status %d, want 303", path, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/login" {
			t.Errorf("%s: redirected to %q", path, loc)
		}
	}
}

func TestLoginFlow(t *testing.T) {
	srv := newTestServer(t, &stubStore{})

	form := url.Values{"username": {"admin"}, "password": {"geheim"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login status %d", rec.Code)
	}
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			session = c
		}
	}
	if session == nil || session.Value == "" {
		t.Fatal("no session cookie set")
	}
	if user, ok := srv.sessions.Validate(session.Value); !ok || user != "admin" {
		t.Errorf("session invalid: %q, %v", user, ok)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := newTestServer(t, &stubStore{})

	form := url.Values{"username": {"admin"}, "password": {"falsch"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status %d, want 401", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie && c.Value != "" {
			t.Error("session cookie set for failed login")
		}
	}
}

func TestVehicleDetailUnknownIDRedirects(t *testing.T) {
	srv := newTestServer(t, &stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/vehicles/detail?id=99", nil)
	req.AddCookie(loggedInCookie(t, srv))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/vehicles" {
		t.Errorf("redirected to %q", loc)
	}
}

func TestVehicleDetailMalformedIDRedirects(t *testing.T) {
	srv := newTestServer(t, &stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/vehicles/detail?id=abc", nil)
	req.AddCookie(loggedInCookie(t, srv))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/vehicles" {
		t.Errorf("status %d, location %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestFuelImportRendersSummary(t *testing.T) {
	store := &stubStore{
		vehicles: []core.Vehicle{{ID: 3, Make: "VW", Model: "Crafter", Plate: "B-KF 3", Year: 2020, Status: core.StatusAvailable}},
	}
	srv := newTestServer(t, store)

	var body strings.Builder
	mw := newMultipart(&body)
	mw.field("vehicle_id", "3")
	mw.file("csv_file", "export.csv", "7;2024-01-15;50000;45,5;1,799\n8;kaputt;1;1;1\n")
	contentType := mw.close()

	req := httptest.NewRequest(http.MethodPost, "/fuel/import", strings.NewReader(body.String()))
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(loggedInCookie(t, srv))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	html, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(html), "Zeile 2") {
		t.Errorf("summary misses row error: %s", html)
	}
	if len(store.fuelRecords) != 1 {
		t.Errorf("stored %d records, want 1", len(store.fuelRecords))
	}
}

func TestFuelImportUnknownVehicleRedirects(t *testing.T) {
	srv := newTestServer(t, &stubStore{})

	var body strings.Builder
	mw := newMultipart(&body)
	mw.field("vehicle_id", "42")
	mw.file("csv_file", "export.csv", "7;2024-01-15;50000;45,5;1,799\n")
	contentType := mw.close()

	req := httptest.NewRequest(http.MethodPost, "/fuel/import", strings.NewReader(body.String()))
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(loggedInCookie(t, srv))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/vehicles" {
		t.Errorf("status %d, location %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestFuelPageShowsConsumptionForSelectedVehicle(t *testing.T) {
	store := &stubStore{
		vehicles: []core.Vehicle{{ID: 3, Make: "VW", Model: "Crafter", Plate: "B-KF 3", Year: 2020, Status: core.StatusAvailable}},
		fuelRecords: []core.FuelRecord{
			{ID: 1, VehicleID: 3, Date: core.NewDate(2024, 1, 10), Odometer: 50000, Liters: 45.5, PricePerLiter: 1.8, TotalCost: 81.9, FuelType: "diesel"},
			{ID: 2, VehicleID: 3, Date: core.NewDate(2024, 1, 20), Odometer: 50500, Liters: 40, PricePerLiter: 1.8, TotalCost: 72, FuelType: "diesel"},
		},
	}
	srv := newTestServer(t, store)

	req := httptest.NewRequest(http.MethodGet, "/fuel?vehicle_id=3", nil)
	req.AddCookie(loggedInCookie(t, srv))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	html := rec.Body.String()
	// 85,5 L over 500 km: 17,10 L/100km on average, one 9,10 interval.
	for _, want := range []string{"Verbrauchsanalyse", "Durchschnittsverbrauch", "17,10 L/100km", "9,10"} {
		if !strings.Contains(html, want) {
			t.Errorf("fuel page misses %q", want)
		}
	}

	req = httptest.NewRequest(http.MethodGet, "/fuel", nil)
	req.AddCookie(loggedInCookie(t, srv))
	rec = httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if strings.Contains(rec.Body.String(), "Verbrauchsanalyse") {
		t.Error("consumption section shown without a vehicle filter")
	}
}

func TestMaintenancePageShowsUpcomingForSelectedVehicle(t *testing.T) {
	nextDate := time.Now().AddDate(0, 0, 10)
	nextKM := int64(50500)
	store := &stubStore{
		vehicles: []core.Vehicle{{ID: 3, Make: "VW", Model: "Crafter", Plate: "B-KF 3", Year: 2020, Status: core.StatusAvailable}},
		odometer: 50000,
		maintenance: []core.MaintenanceRecord{{
			ID: 1, VehicleID: 3, Type: core.MaintenanceMinor,
			DatePerformed: core.NewDate(2024, 5, 1), Cost: 180, Description: "Ölwechsel",
			NextDueDate: core.NewDate(nextDate.Year(), int(nextDate.Month()), nextDate.Day()),
			NextDueKM:   &nextKM,
		}},
	}
	srv := newTestServer(t, store)

	req := httptest.NewRequest(http.MethodGet, "/maintenance?vehicle_id=3", nil)
	req.AddCookie(loggedInCookie(t, srv))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	html := rec.Body.String()
	for _, want := range []string{"Anstehende Wartungen", "Bald fällig", "Aktueller Kilometerstand", "50.000 km"} {
		if !strings.Contains(html, want) {
			t.Errorf("maintenance page misses %q", want)
		}
	}

	req = httptest.NewRequest(http.MethodGet, "/maintenance", nil)
	req.AddCookie(loggedInCookie(t, srv))
	rec = httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if strings.Contains(rec.Body.String(), "Anstehende Wartungen") {
		t.Error("alert section shown without a vehicle filter")
	}
}

func TestRequestLogsCarryComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	srv := newTestServer(t, &stubStore{})
	req := httptest.NewRequest(http.MethodGet, "/vehicles", nil)
	req.AddCookie(loggedInCookie(t, srv))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if !strings.Contains(buf.String(), "component=http") {
		t.Errorf("request log misses component attribute:\n%s", buf.String())
	}
}

func TestFormatGermanNumber(t *testing.T) {
	cases := []struct {
		v        float64
		decimals int
		want     string
	}{
		{1234.5, 2, "1.234,50"},
		{0, 0, "0"},
		{1000000, 0, "1.000.000"},
		{-42.127, 2, "-42,13"},
		{7.5, 1, "7,5"},
	}
	for _, tc := range cases {
		if got := formatGermanNumber(tc.v, tc.decimals); got != tc.want {
			t.Errorf("formatGermanNumber(%v, %d) = %q, want %q", tc.v, tc.decimals, got, tc.want)
		}
	}
	if got := formatEuros(1234.5); got != "1.234,50 €" {
		t.Errorf("formatEuros = %q", got)
	}
}
