package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kfz/internal/core"
)

// ListVehicles returns all vehicles, newest first.
func (r *SQLiteRepository) ListVehicles(ctx context.Context) ([]core.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, make, model, plate, year, status
		FROM vehicles
		ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var out []core.Vehicle
	for rows.Next() {
		var v core.Vehicle
		if err := rows.Scan(&v.ID, &v.Make, &v.Model, &v.Plate, &v.Year, &v.Status); err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetVehicle(ctx context.Context, id int64) (core.Vehicle, error) {
	var v core.Vehicle
	err := r.db.QueryRowContext(ctx, `
		SELECT id, make, model, plate, year, status
		FROM vehicles
		WHERE id = ?`, id).
		Scan(&v.ID, &v.Make, &v.Model, &v.Plate, &v.Year, &v.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Vehicle{}, ErrNotFound
	}
	if err != nil {
		return core.Vehicle{}, fmt.Errorf("get vehicle %d: %w", id, err)
	}
	return v, nil
}

func (r *SQLiteRepository) CreateVehicle(ctx context.Context, v core.Vehicle) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO vehicles (make, model, plate, year, status)
		VALUES (?, ?, ?, ?, ?)`,
		v.Make, v.Model, v.Plate, v.Year, v.Status)
	if err != nil {
		return 0, fmt.Errorf("create vehicle: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) UpdateVehicle(ctx context.Context, v core.Vehicle) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE vehicles
		SET make = ?, model = ?, plate = ?, year = ?, status = ?
		WHERE id = ?`,
		v.Make, v.Model, v.Plate, v.Year, v.Status, v.ID)
	if err != nil {
		return fmt.Errorf("update vehicle %d: %w", v.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update vehicle %d: %w", v.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteVehicle removes a vehicle and all of its child records in one
// transaction. The cascade is explicit so it also works on databases created
// before foreign keys were enforced.
func (r *SQLiteRepository) DeleteVehicle(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete vehicle %d: %w", id, err)
	}
	defer tx.Rollback()

	for _, table := range []string{"mileage_records", "fuel_records", "maintenance_records"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE vehicle_id = ?", id); err != nil {
			return fmt.Errorf("delete %s for vehicle %d: %w", table, id, err)
		}
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM vehicles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete vehicle %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete vehicle %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// CountVehiclesByStatus feeds the dashboard summary tiles.
func (r *SQLiteRepository) CountVehiclesByStatus(ctx context.Context) (map[core.VehicleStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM vehicles
		GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count vehicles by status: %w", err)
	}
	defer rows.Close()

	out := make(map[core.VehicleStatus]int)
	for rows.Next() {
		var status core.VehicleStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}
