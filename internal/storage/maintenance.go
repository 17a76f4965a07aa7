package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kfz/internal/core"
)

func (r *SQLiteRepository) CreateMaintenanceRecord(ctx context.Context, m core.MaintenanceRecord) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO maintenance_records
			(vehicle_id, maintenance_type, date_performed, odometer, cost,
			 description, next_maintenance_date, next_maintenance_km)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.VehicleID, m.Type, m.DatePerformed.ISO(), m.Odometer, m.Cost,
		m.Description, dateArg(m.NextDueDate), m.NextDueKM)
	if err != nil {
		return 0, fmt.Errorf("create maintenance record: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) GetMaintenanceRecord(ctx context.Context, id int64) (core.MaintenanceRecord, error) {
	var m core.MaintenanceRecord
	var performed, nextDate sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, vehicle_id, maintenance_type, date_performed, odometer, cost,
		       description, next_maintenance_date, next_maintenance_km
		FROM maintenance_records
		WHERE id = ?`, id).
		Scan(&m.ID, &m.VehicleID, &m.Type, &performed, &m.Odometer, &m.Cost,
			&m.Description, &nextDate, &m.NextDueKM)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MaintenanceRecord{}, ErrNotFound
	}
	if err != nil {
		return core.MaintenanceRecord{}, fmt.Errorf("get maintenance record %d: %w", id, err)
	}
	m.DatePerformed = scanDate(performed)
	m.NextDueDate = scanDate(nextDate)
	return m, nil
}

func (r *SQLiteRepository) DeleteMaintenanceRecord(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM maintenance_records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete maintenance record %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete maintenance record %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMaintenanceRecords returns a vehicle's maintenance history, newest
// first.
func (r *SQLiteRepository) ListMaintenanceRecords(ctx context.Context, vehicleID int64) ([]core.MaintenanceRecord, error) {
	return r.queryMaintenanceRecords(ctx, `
		SELECT id, vehicle_id, maintenance_type, date_performed, odometer, cost,
		       description, next_maintenance_date, next_maintenance_km
		FROM maintenance_records
		WHERE vehicle_id = ?
		ORDER BY date_performed DESC, id DESC`, vehicleID)
}

// ListAllMaintenanceRecords returns the whole fleet's maintenance history,
// newest first.
func (r *SQLiteRepository) ListAllMaintenanceRecords(ctx context.Context) ([]core.MaintenanceRecord, error) {
	return r.queryMaintenanceRecords(ctx, `
		SELECT id, vehicle_id, maintenance_type, date_performed, odometer, cost,
		       description, next_maintenance_date, next_maintenance_km
		FROM maintenance_records
		ORDER BY date_performed DESC, id DESC`)
}

// UpcomingMaintenance returns records that still have an open reminder: a
// next-due date in the future or any next-due odometer. Date-bound records
// come first, soonest date first.
func (r *SQLiteRepository) UpcomingMaintenance(ctx context.Context, vehicleID int64) ([]core.MaintenanceRecord, error) {
	return r.queryMaintenanceRecords(ctx, `
		SELECT id, vehicle_id, maintenance_type, date_performed, odometer, cost,
		       description, next_maintenance_date, next_maintenance_km
		FROM maintenance_records
		WHERE vehicle_id = ?
		  AND (next_maintenance_date > date('now') OR next_maintenance_km IS NOT NULL)
		ORDER BY next_maintenance_date IS NULL, next_maintenance_date ASC,
		         next_maintenance_km ASC`, vehicleID)
}

// CountDueSoonMaintenance counts reminders for the dashboard badge: next-due
// date within the window or any next-due odometer still open.
func (r *SQLiteRepository) CountDueSoonMaintenance(ctx context.Context, windowDays int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM maintenance_records
		WHERE (next_maintenance_date BETWEEN date('now') AND date('now', ?))
		   OR next_maintenance_km IS NOT NULL`,
		fmt.Sprintf("+%d days", windowDays)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count due soon maintenance: %w", err)
	}
	return n, nil
}

// TotalMaintenanceCost sums all maintenance spending across the fleet.
func (r *SQLiteRepository) TotalMaintenanceCost(ctx context.Context) (float64, error) {
	var total sql.NullFloat64
	err := r.db.QueryRowContext(ctx, "SELECT SUM(cost) FROM maintenance_records").Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total maintenance cost: %w", err)
	}
	return core.RoundCurrency(total.Float64), nil
}

func (r *SQLiteRepository) queryMaintenanceRecords(ctx context.Context, query string, args ...any) ([]core.MaintenanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list maintenance records: %w", err)
	}
	defer rows.Close()

	var out []core.MaintenanceRecord
	for rows.Next() {
		var m core.MaintenanceRecord
		var performed, nextDate sql.NullString
		if err := rows.Scan(&m.ID, &m.VehicleID, &m.Type, &performed, &m.Odometer,
			&m.Cost, &m.Description, &nextDate, &m.NextDueKM); err != nil {
			return nil, fmt.Errorf("scan maintenance record: %w", err)
		}
		m.DatePerformed = scanDate(performed)
		m.NextDueDate = scanDate(nextDate)
		out = append(out, m)
	}
	return out, rows.Err()
}
