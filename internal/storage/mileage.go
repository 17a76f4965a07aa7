package storage

import (
	"context"
	"database/sql"
	"fmt"

	"kfz/internal/core"
)

func (r *SQLiteRepository) CreateMileageRecord(ctx context.Context, m core.MileageRecord) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO mileage_records (vehicle_id, odometer, date, note)
		VALUES (?, ?, ?, ?)`,
		m.VehicleID, m.Odometer, m.Date.ISO(), m.Note)
	if err != nil {
		return 0, fmt.Errorf("create mileage record: %w", err)
	}
	return res.LastInsertId()
}

// ListMileageRecords returns a vehicle's odometer entries, newest first.
func (r *SQLiteRepository) ListMileageRecords(ctx context.Context, vehicleID int64) ([]core.MileageRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, vehicle_id, odometer, date, note
		FROM mileage_records
		WHERE vehicle_id = ?
		ORDER BY date DESC, id DESC`, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list mileage records: %w", err)
	}
	defer rows.Close()

	var out []core.MileageRecord
	for rows.Next() {
		var m core.MileageRecord
		var date sql.NullString
		if err := rows.Scan(&m.ID, &m.VehicleID, &m.Odometer, &date, &m.Note); err != nil {
			return nil, fmt.Errorf("scan mileage record: %w", err)
		}
		m.Date = scanDate(date)
		out = append(out, m)
	}
	return out, rows.Err()
}

// CurrentOdometer returns the highest odometer recorded on the most recent
// date a vehicle has any record, across manual readings, fill-ups and
// maintenance entries. Zero when the vehicle has no records at all.
func (r *SQLiteRepository) CurrentOdometer(ctx context.Context, vehicleID int64) (int64, error) {
	var odo sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT MAX(odometer) FROM (
			SELECT odometer, date FROM mileage_records WHERE vehicle_id = ?
			UNION ALL
			SELECT odometer, date FROM fuel_records WHERE vehicle_id = ?
			UNION ALL
			SELECT odometer, date_performed AS date FROM maintenance_records
			WHERE vehicle_id = ? AND odometer IS NOT NULL
		)
		WHERE date = (
			SELECT MAX(date) FROM (
				SELECT date FROM mileage_records WHERE vehicle_id = ?
				UNION ALL
				SELECT date FROM fuel_records WHERE vehicle_id = ?
				UNION ALL
				SELECT date_performed FROM maintenance_records
				WHERE vehicle_id = ? AND odometer IS NOT NULL
			)
		)`,
		vehicleID, vehicleID, vehicleID, vehicleID, vehicleID, vehicleID).Scan(&odo)
	if err != nil {
		return 0, fmt.Errorf("current odometer for vehicle %d: %w", vehicleID, err)
	}
	if !odo.Valid {
		return 0, nil
	}
	return odo.Int64, nil
}

// OdometerPoint is one reading on the combined odometer timeline.
type OdometerPoint struct {
	Date     core.Date
	Odometer int64
	Source   string // "mileage", "fuel" or "maintenance"
}

// OdometerHistory merges odometer readings from all three record kinds into
// one ascending timeline for the vehicle detail chart.
func (r *SQLiteRepository) OdometerHistory(ctx context.Context, vehicleID int64) ([]OdometerPoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, odometer, source FROM (
			SELECT date, odometer, 'mileage' AS source
			FROM mileage_records WHERE vehicle_id = ?
			UNION ALL
			SELECT date, odometer, 'fuel' AS source
			FROM fuel_records WHERE vehicle_id = ?
			UNION ALL
			SELECT date_performed AS date, odometer, 'maintenance' AS source
			FROM maintenance_records WHERE vehicle_id = ? AND odometer IS NOT NULL
		)
		ORDER BY date ASC, odometer ASC`,
		vehicleID, vehicleID, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("odometer history for vehicle %d: %w", vehicleID, err)
	}
	defer rows.Close()

	var out []OdometerPoint
	for rows.Next() {
		var p OdometerPoint
		var date sql.NullString
		if err := rows.Scan(&date, &p.Odometer, &p.Source); err != nil {
			return nil, fmt.Errorf("scan odometer point: %w", err)
		}
		p.Date = scanDate(date)
		// Collapse same-day duplicates from different sources, keeping the
		// higher reading.
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date.Time) {
			if p.Odometer >= out[n-1].Odometer {
				out[n-1] = p
			}
			continue
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
