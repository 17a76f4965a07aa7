package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"kfz/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "kfz.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testVehicle() core.Vehicle {
	return core.Vehicle{Make: "VW", Model: "Transporter", Plate: "B-KF 1234", Year: 2019, Status: core.StatusAvailable}
}

func mustCreateVehicle(t *testing.T, repo *SQLiteRepository) int64 {
	t.Helper()
	id, err := repo.CreateVehicle(context.Background(), testVehicle())
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestVehicleCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateVehicle(ctx, testVehicle())
	if err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetVehicle(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Make != "VW" || got.Plate != "B-KF 1234" || got.Status != core.StatusAvailable {
		t.Errorf("got %+v", got)
	}

	got.Status = core.StatusMaintenance
	if err := repo.UpdateVehicle(ctx, got); err != nil {
		t.Fatal(err)
	}
	got, _ = repo.GetVehicle(ctx, id)
	if got.Status != core.StatusMaintenance {
		t.Errorf("status not updated: %v", got.Status)
	}

	if err := repo.DeleteVehicle(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetVehicle(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteVehicle(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: expected ErrNotFound, got %v", err)
	}
}

func TestListVehiclesNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := mustCreateVehicle(t, repo)
	second := mustCreateVehicle(t, repo)

	list, err := repo.ListVehicles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d vehicles", len(list))
	}
	if list[0].ID != second || list[1].ID != first {
		t.Errorf("order: %d, %d", list[0].ID, list[1].ID)
	}
}

func TestDeleteVehicleCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := mustCreateVehicle(t, repo)

	if _, err := repo.CreateMileageRecord(ctx, core.MileageRecord{
		VehicleID: id, Odometer: 50000, Date: core.NewDate(2024, 1, 10),
	}); err != nil {
		t.Fatal(err)
	}
	fuel := core.FuelRecord{
		VehicleID: id, Odometer: 50100, Date: core.NewDate(2024, 1, 15),
		PricePerLiter: 1.8, Liters: 40, FuelType: "diesel",
	}
	fuel.ComputeTotalCost()
	if _, err := repo.CreateFuelRecord(ctx, fuel); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateMaintenanceRecord(ctx, core.MaintenanceRecord{
		VehicleID: id, Type: core.MaintenanceTUV, DatePerformed: core.NewDate(2024, 1, 20), Cost: 120,
	}); err != nil {
		t.Fatal(err)
	}

	if err := repo.DeleteVehicle(ctx, id); err != nil {
		t.Fatal(err)
	}

	if recs, _ := repo.ListFuelRecords(ctx, id); len(recs) != 0 {
		t.Errorf("fuel records survived the delete: %d", len(recs))
	}
	if recs, _ := repo.ListMileageRecords(ctx, id); len(recs) != 0 {
		t.Errorf("mileage records survived the delete: %d", len(recs))
	}
	if recs, _ := repo.ListMaintenanceRecords(ctx, id); len(recs) != 0 {
		t.Errorf("maintenance records survived the delete: %d", len(recs))
	}
}

func TestCurrentOdometerAcrossSources(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := mustCreateVehicle(t, repo)

	odo, err := repo.CurrentOdometer(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if odo != 0 {
		t.Errorf("empty vehicle odometer = %d", odo)
	}

	if _, err := repo.CreateMileageRecord(ctx, core.MileageRecord{
		VehicleID: id, Odometer: 50000, Date: core.NewDate(2024, 1, 10),
	}); err != nil {
		t.Fatal(err)
	}
	fuel := core.FuelRecord{
		VehicleID: id, Odometer: 50400, Date: core.NewDate(2024, 2, 1),
		PricePerLiter: 1.8, Liters: 40, FuelType: "diesel",
	}
	fuel.ComputeTotalCost()
	if _, err := repo.CreateFuelRecord(ctx, fuel); err != nil {
		t.Fatal(err)
	}
	maintOdo := int64(50600)
	if _, err := repo.CreateMaintenanceRecord(ctx, core.MaintenanceRecord{
		VehicleID: id, Type: core.MaintenanceMinor,
		DatePerformed: core.NewDate(2024, 3, 1), Odometer: &maintOdo, Cost: 80,
	}); err != nil {
		t.Fatal(err)
	}

	odo, err = repo.CurrentOdometer(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	// The maintenance entry carries the latest date, so its reading wins.
	if odo != 50600 {
		t.Errorf("current odometer = %d, want 50600", odo)
	}
}

func TestFuelRecordRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := mustCreateVehicle(t, repo)

	disp := 7.5
	rec := core.FuelRecord{
		VehicleID: id, Odometer: 50000, Date: core.NewDate(2024, 1, 15),
		PricePerLiter: 1.799, Liters: 45.5, FuelType: "diesel",
		DisplayedConsumption: &disp, Note: "Autobahn",
	}
	rec.ComputeTotalCost()

	recID, err := repo.CreateFuelRecord(ctx, rec)
	if err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetFuelRecord(ctx, recID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Date.ISO() != "2024-01-15" || got.TotalCost != rec.TotalCost {
		t.Errorf("got %+v", got)
	}
	if got.DisplayedConsumption == nil || *got.DisplayedConsumption != 7.5 {
		t.Errorf("displayed consumption = %v", got.DisplayedConsumption)
	}
	if got.EngineHours != nil {
		t.Errorf("engine hours should stay unset, got %v", *got.EngineHours)
	}

	got.Liters = 50
	got.ComputeTotalCost()
	if err := repo.UpdateFuelRecord(ctx, got); err != nil {
		t.Fatal(err)
	}
	again, _ := repo.GetFuelRecord(ctx, recID)
	if again.Liters != 50 {
		t.Errorf("liters = %v", again.Liters)
	}

	if err := repo.DeleteFuelRecord(ctx, recID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetFuelRecord(ctx, recID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListFuelRecordsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := mustCreateVehicle(t, repo)

	for _, iso := range []string{"2024-01-15", "2024-03-15", "2024-02-15"} {
		rec := core.FuelRecord{
			VehicleID: id, Odometer: 50000, Date: core.ParseGermanDate(iso),
			PricePerLiter: 1.8, Liters: 40, FuelType: "benzin",
		}
		rec.ComputeTotalCost()
		if _, err := repo.CreateFuelRecord(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	list, err := repo.ListFuelRecords(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d records", len(list))
	}
	want := []string{"2024-03-15", "2024-02-15", "2024-01-15"}
	for i, rec := range list {
		if rec.Date.ISO() != want[i] {
			t.Errorf("position %d: %s, want %s", i, rec.Date.ISO(), want[i])
		}
	}
}

func TestUpcomingMaintenance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := mustCreateVehicle(t, repo)

	nextKM := int64(60000)
	records := []core.MaintenanceRecord{
		// Open date reminder far in the future.
		{VehicleID: id, Type: core.MaintenanceTUV, DatePerformed: core.NewDate(2024, 1, 1),
			NextDueDate: core.NewDate(2099, 6, 1), Cost: 120},
		// Closed: date in the past, no odometer threshold.
		{VehicleID: id, Type: core.MaintenanceMinor, DatePerformed: core.NewDate(2020, 1, 1),
			NextDueDate: core.NewDate(2020, 6, 1), Cost: 80},
		// Open odometer reminder.
		{VehicleID: id, Type: core.MaintenanceMajor, DatePerformed: core.NewDate(2024, 2, 1),
			NextDueKM: &nextKM, Cost: 400},
	}
	for _, m := range records {
		if _, err := repo.CreateMaintenanceRecord(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.UpcomingMaintenance(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d upcoming records", len(got))
	}
	// Date-bound reminders sort before date-less odometer reminders.
	if got[0].Type != core.MaintenanceTUV || got[1].Type != core.MaintenanceMajor {
		t.Errorf("order: %v, %v", got[0].Type, got[1].Type)
	}
	if got[1].NextDueKM == nil || *got[1].NextDueKM != 60000 {
		t.Errorf("next due km = %v", got[1].NextDueKM)
	}
	if !got[1].NextDueDate.IsZero() {
		t.Errorf("unset due date scanned as %v", got[1].NextDueDate)
	}
}

func TestAggregates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := mustCreateVehicle(t, repo)

	for _, rec := range []struct {
		liters, price float64
	}{{40, 1.8}, {50, 1.7}} {
		f := core.FuelRecord{
			VehicleID: id, Odometer: 50000, Date: core.NewDate(2024, 1, 15),
			PricePerLiter: rec.price, Liters: rec.liters, FuelType: "benzin",
		}
		f.ComputeTotalCost()
		if _, err := repo.CreateFuelRecord(ctx, f); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := repo.CreateMaintenanceRecord(ctx, core.MaintenanceRecord{
		VehicleID: id, Type: core.MaintenanceTUV, DatePerformed: core.NewDate(2024, 1, 20), Cost: 120.50,
	}); err != nil {
		t.Fatal(err)
	}

	fuelTotal, err := repo.TotalFuelCost(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if fuelTotal != 157 { // 72.00 + 85.00
		t.Errorf("fuel total = %v, want 157", fuelTotal)
	}

	maintTotal, err := repo.TotalMaintenanceCost(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if maintTotal != 120.50 {
		t.Errorf("maintenance total = %v", maintTotal)
	}

	byVehicle, err := repo.FuelCostsByVehicle(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(byVehicle) != 1 || byVehicle[0].Cost != 157 {
		t.Errorf("by vehicle = %+v", byVehicle)
	}
	if byVehicle[0].Label != "VW Transporter (B-KF 1234)" {
		t.Errorf("label = %q", byVehicle[0].Label)
	}
}

func TestEnsureAdminUserIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.EnsureAdminUser(ctx, "admin", "geheim"); err != nil {
		t.Fatal(err)
	}
	first, err := repo.GetUserByUsername(ctx, "admin")
	if err != nil {
		t.Fatal(err)
	}

	// A second start with a different password must not overwrite.
	if err := repo.EnsureAdminUser(ctx, "admin", "anders"); err != nil {
		t.Fatal(err)
	}
	second, err := repo.GetUserByUsername(ctx, "admin")
	if err != nil {
		t.Fatal(err)
	}
	if first.PasswordHash != second.PasswordHash {
		t.Error("admin password overwritten on restart")
	}

	if _, err := repo.GetUserByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
