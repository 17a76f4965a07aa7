package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kfz/internal/core"
)

func (r *SQLiteRepository) CreateFuelRecord(ctx context.Context, f core.FuelRecord) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO fuel_records
			(vehicle_id, odometer, date, price_per_liter, liters, total_cost,
			 fuel_type, displayed_consumption, engine_hours, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.VehicleID, f.Odometer, f.Date.ISO(), f.PricePerLiter, f.Liters, f.TotalCost,
		f.FuelType, f.DisplayedConsumption, f.EngineHours, f.Note)
	if err != nil {
		return 0, fmt.Errorf("create fuel record: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) GetFuelRecord(ctx context.Context, id int64) (core.FuelRecord, error) {
	var f core.FuelRecord
	var date sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, vehicle_id, odometer, date, price_per_liter, liters, total_cost,
		       fuel_type, displayed_consumption, engine_hours, note
		FROM fuel_records
		WHERE id = ?`, id).
		Scan(&f.ID, &f.VehicleID, &f.Odometer, &date, &f.PricePerLiter, &f.Liters,
			&f.TotalCost, &f.FuelType, &f.DisplayedConsumption, &f.EngineHours, &f.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FuelRecord{}, ErrNotFound
	}
	if err != nil {
		return core.FuelRecord{}, fmt.Errorf("get fuel record %d: %w", id, err)
	}
	f.Date = scanDate(date)
	return f, nil
}

func (r *SQLiteRepository) UpdateFuelRecord(ctx context.Context, f core.FuelRecord) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE fuel_records
		SET odometer = ?, date = ?, price_per_liter = ?, liters = ?, total_cost = ?,
		    fuel_type = ?, displayed_consumption = ?, engine_hours = ?, note = ?
		WHERE id = ?`,
		f.Odometer, f.Date.ISO(), f.PricePerLiter, f.Liters, f.TotalCost,
		f.FuelType, f.DisplayedConsumption, f.EngineHours, f.Note, f.ID)
	if err != nil {
		return fmt.Errorf("update fuel record %d: %w", f.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update fuel record %d: %w", f.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteFuelRecord(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM fuel_records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete fuel record %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete fuel record %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFuelRecords returns a vehicle's fill-ups, newest first.
func (r *SQLiteRepository) ListFuelRecords(ctx context.Context, vehicleID int64) ([]core.FuelRecord, error) {
	return r.queryFuelRecords(ctx, `
		SELECT id, vehicle_id, odometer, date, price_per_liter, liters, total_cost,
		       fuel_type, displayed_consumption, engine_hours, note
		FROM fuel_records
		WHERE vehicle_id = ?
		ORDER BY date DESC, id DESC`, vehicleID)
}

// ListAllFuelRecords returns every fill-up in the fleet, newest first.
func (r *SQLiteRepository) ListAllFuelRecords(ctx context.Context) ([]core.FuelRecord, error) {
	return r.queryFuelRecords(ctx, `
		SELECT id, vehicle_id, odometer, date, price_per_liter, liters, total_cost,
		       fuel_type, displayed_consumption, engine_hours, note
		FROM fuel_records
		ORDER BY date DESC, id DESC`)
}

func (r *SQLiteRepository) queryFuelRecords(ctx context.Context, query string, args ...any) ([]core.FuelRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list fuel records: %w", err)
	}
	defer rows.Close()

	var out []core.FuelRecord
	for rows.Next() {
		var f core.FuelRecord
		var date sql.NullString
		if err := rows.Scan(&f.ID, &f.VehicleID, &f.Odometer, &date, &f.PricePerLiter,
			&f.Liters, &f.TotalCost, &f.FuelType, &f.DisplayedConsumption,
			&f.EngineHours, &f.Note); err != nil {
			return nil, fmt.Errorf("scan fuel record: %w", err)
		}
		f.Date = scanDate(date)
		out = append(out, f)
	}
	return out, rows.Err()
}

// TotalFuelCost sums all fuel spending across the fleet.
func (r *SQLiteRepository) TotalFuelCost(ctx context.Context) (float64, error) {
	var total sql.NullFloat64
	err := r.db.QueryRowContext(ctx, "SELECT SUM(total_cost) FROM fuel_records").Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total fuel cost: %w", err)
	}
	return core.RoundCurrency(total.Float64), nil
}

// MonthCost is one month's spending, keyed as YYYY-MM.
type MonthCost struct {
	Month string
	Cost  float64
}

// MonthlyFuelCosts returns fuel spending per month for the last n months,
// oldest first. Months without records are absent.
func (r *SQLiteRepository) MonthlyFuelCosts(ctx context.Context, months int) ([]MonthCost, error) {
	return r.queryMonthCosts(ctx, `
		SELECT strftime('%Y-%m', date) AS month, SUM(total_cost)
		FROM fuel_records
		WHERE date >= date('now', ?)
		GROUP BY month
		ORDER BY month ASC`, fmt.Sprintf("-%d months", months))
}

// MonthlyMaintenanceCosts mirrors MonthlyFuelCosts for maintenance spending.
func (r *SQLiteRepository) MonthlyMaintenanceCosts(ctx context.Context, months int) ([]MonthCost, error) {
	return r.queryMonthCosts(ctx, `
		SELECT strftime('%Y-%m', date_performed) AS month, SUM(cost)
		FROM maintenance_records
		WHERE date_performed >= date('now', ?)
		GROUP BY month
		ORDER BY month ASC`, fmt.Sprintf("-%d months", months))
}

func (r *SQLiteRepository) queryMonthCosts(ctx context.Context, query string, args ...any) ([]MonthCost, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monthly costs: %w", err)
	}
	defer rows.Close()

	var out []MonthCost
	for rows.Next() {
		var m MonthCost
		if err := rows.Scan(&m.Month, &m.Cost); err != nil {
			return nil, fmt.Errorf("scan month cost: %w", err)
		}
		m.Cost = core.RoundCurrency(m.Cost)
		out = append(out, m)
	}
	return out, rows.Err()
}

// VehicleCost is one vehicle's share of a spending breakdown.
type VehicleCost struct {
	VehicleID int64
	Label     string // "Make Model (Plate)"
	Cost      float64
}

// FuelCostsByVehicle breaks total fuel spending down per vehicle, biggest
// spender first.
func (r *SQLiteRepository) FuelCostsByVehicle(ctx context.Context) ([]VehicleCost, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT v.id, v.make || ' ' || v.model || ' (' || v.plate || ')', SUM(f.total_cost)
		FROM fuel_records f
		JOIN vehicles v ON v.id = f.vehicle_id
		GROUP BY v.id
		ORDER BY SUM(f.total_cost) DESC`)
	if err != nil {
		return nil, fmt.Errorf("fuel costs by vehicle: %w", err)
	}
	defer rows.Close()

	var out []VehicleCost
	for rows.Next() {
		var vc VehicleCost
		if err := rows.Scan(&vc.VehicleID, &vc.Label, &vc.Cost); err != nil {
			return nil, fmt.Errorf("scan vehicle cost: %w", err)
		}
		vc.Cost = core.RoundCurrency(vc.Cost)
		out = append(out, vc)
	}
	return out, rows.Err()
}

// Activity is one line of the dashboard's recent-activity feed.
type Activity struct {
	Date         core.Date
	VehicleLabel string
	Kind         string // "tanken" or "wartung"
	Detail       string
	Cost         float64
}

// RecentActivity merges the latest fuel and maintenance entries across the
// fleet, newest first, capped at limit.
func (r *SQLiteRepository) RecentActivity(ctx context.Context, limit int) ([]Activity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, label, kind, detail, cost FROM (
			SELECT f.date AS date,
			       v.make || ' ' || v.model || ' (' || v.plate || ')' AS label,
			       'tanken' AS kind,
			       printf('%.2f L', f.liters) AS detail,
			       f.total_cost AS cost
			FROM fuel_records f JOIN vehicles v ON v.id = f.vehicle_id
			UNION ALL
			SELECT m.date_performed AS date,
			       v.make || ' ' || v.model || ' (' || v.plate || ')' AS label,
			       'wartung' AS kind,
			       m.maintenance_type AS detail,
			       m.cost AS cost
			FROM maintenance_records m JOIN vehicles v ON v.id = m.vehicle_id
		)
		ORDER BY date DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		var date sql.NullString
		if err := rows.Scan(&date, &a.VehicleLabel, &a.Kind, &a.Detail, &a.Cost); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Date = scanDate(date)
		out = append(out, a)
	}
	return out, rows.Err()
}
