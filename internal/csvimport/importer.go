// Package csvimport reads fuel records from semicolon-delimited CSV exports
// and hands them to storage one row at a time. Bad rows are collected, not
// fatal: a single typo must never abort a 500-row import.
package csvimport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"kfz/internal/core"
)

// RecordWriter is the slice of storage the importer needs.
type RecordWriter interface {
	CreateFuelRecord(ctx context.Context, rec core.FuelRecord) (int64, error)
}

// RowError describes why a single CSV row was rejected.
type RowError struct {
	Row     int // 1-based, counting every row including a skipped header
	Message string
}

func (e RowError) String() string {
	return fmt.Sprintf("Zeile %d: %s", e.Row, e.Message)
}

// Result summarizes one import run.
type Result struct {
	BatchID  string
	Accepted int
	Errors   []RowError
}

func (r Result) Rejected() int { return len(r.Errors) }

// ErrorMessages renders at most limit row errors for display, appending a
// "+N weitere" line when more were suppressed.
func (r Result) ErrorMessages(limit int) []string {
	if limit <= 0 || limit > len(r.Errors) {
		limit = len(r.Errors)
	}
	out := make([]string, 0, limit+1)
	for _, e := range r.Errors[:limit] {
		out = append(out, e.String())
	}
	if rest := len(r.Errors) - limit; rest > 0 {
		out = append(out, fmt.Sprintf("+%d weitere", rest))
	}
	return out
}

// Importer parses CSV fuel exports. Safe for concurrent use.
type Importer struct {
	store    RecordWriter
	fuelType string
}

// New builds an Importer that stamps accepted records with defaultFuelType.
func New(store RecordWriter, defaultFuelType string) *Importer {
	return &Importer{store: store, fuelType: defaultFuelType}
}

// Import reads rows of the form
//
//	id;date;odometer;liters;price_per_liter
//
// and stores one fuel record per valid row. Rows are processed in order and
// independently; an invalid or unstorable row is recorded as an error and
// processing continues with the next one. There is no duplicate detection,
// importing the same file twice stores every row twice.
func (imp *Importer) Import(ctx context.Context, vehicleID int64, r io.Reader) (Result, error) {
	res := Result{BatchID: uuid.NewString()}

	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	row := 0
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: row, Message: "ungültige CSV-Zeile"})
			continue
		}
		if row == 1 && isHeader(fields) {
			continue
		}
		rec, rowErr := parseRow(fields, vehicleID, imp.fuelType)
		if rowErr != "" {
			res.Errors = append(res.Errors, RowError{Row: row, Message: rowErr})
			continue
		}
		if _, err := imp.store.CreateFuelRecord(ctx, rec); err != nil {
			res.Errors = append(res.Errors, RowError{Row: row, Message: "Speichern fehlgeschlagen: " + err.Error()})
			continue
		}
		res.Accepted++
	}
	return res, nil
}

// isHeader sniffs whether the first row is a column header: its first field
// is non-numeric or mentions "id".
func isHeader(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	first := strings.TrimSpace(fields[0])
	if strings.Contains(strings.ToLower(first), "id") {
		return true
	}
	_, err := strconv.ParseFloat(strings.ReplaceAll(first, ",", "."), 64)
	return err != nil
}

// parseRow validates one data row. The returned message is empty on success.
func parseRow(fields []string, vehicleID int64, fuelType string) (core.FuelRecord, string) {
	if len(fields) < 5 {
		return core.FuelRecord{}, "zu wenige Spalten"
	}

	externalID := strings.TrimSpace(fields[0])

	date := core.ParseFlexibleDate(fields[1])
	if date.IsZero() {
		return core.FuelRecord{}, "ungültiges Datum"
	}

	odoF, err := core.ParseDecimalStrict(fields[2])
	if err != nil || odoF < 0 {
		return core.FuelRecord{}, "ungültiger Kilometerstand"
	}

	liters, err := core.ParseDecimalStrict(fields[3])
	if err != nil || liters <= 0 {
		return core.FuelRecord{}, "ungültige Spritmenge"
	}

	price, err := core.ParseDecimalStrict(fields[4])
	if err != nil || price <= 0 {
		return core.FuelRecord{}, "ungültiger Literpreis"
	}

	rec := core.FuelRecord{
		VehicleID:     vehicleID,
		Odometer:      int64(odoF),
		Date:          date,
		PricePerLiter: price,
		Liters:        liters,
		FuelType:      fuelType,
		Note:          "CSV-Import " + externalID,
	}
	rec.ComputeTotalCost()
	return rec, ""
}
