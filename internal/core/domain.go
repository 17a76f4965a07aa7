package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	StatusAvailable   VehicleStatus = "verfügbar"
	StatusInUse       VehicleStatus = "in Benutzung"
	StatusMaintenance VehicleStatus = "wartung"
)

const (
	MaintenanceMinor MaintenanceType = "kleine_wartung"
	MaintenanceMajor MaintenanceType = "grosse_wartung"
	MaintenanceTUV   MaintenanceType = "tuev"
	MaintenanceHU    MaintenanceType = "hu"
	MaintenanceOther MaintenanceType = "other"
)

type (
	VehicleStatus   string
	MaintenanceType string

	// Date is a calendar day. The zero value means "not set"; optional
	// date fields stay zero instead of overloading an empty string.
	Date struct {
		time.Time
	}

	Vehicle struct {
		ID     int64
		Make   string
		Model  string
		Plate  string
		Year   int
		Status VehicleStatus
	}

	// MileageRecord is an odometer reading entered by hand. Append-only.
	MileageRecord struct {
		ID        int64
		VehicleID int64
		Odometer  int64
		Date      Date
		Note      string
	}

	FuelRecord struct {
		ID            int64
		VehicleID     int64
		Odometer      int64
		Date          Date
		PricePerLiter float64
		Liters        float64
		// TotalCost is derived from price and liters, never entered.
		TotalCost float64
		// FuelType is an open enumeration configured per deployment.
		FuelType string
		// Optional dashboard readings taken at the fill-up.
		DisplayedConsumption *float64
		EngineHours          *float64
		Note                 string
	}

	MaintenanceRecord struct {
		ID            int64
		VehicleID     int64
		Type          MaintenanceType
		DatePerformed Date
		Odometer      *int64
		Cost          float64
		Description   string
		NextDueDate   Date
		NextDueKM     *int64
	}
)

// MaintenanceTypeLabels maps stored maintenance types to display names.
var MaintenanceTypeLabels = map[MaintenanceType]string{
	MaintenanceMinor: "Kleine Wartung",
	MaintenanceMajor: "Große Wartung",
	MaintenanceTUV:   "TÜV",
	MaintenanceHU:    "HU (Hauptuntersuchung)",
	MaintenanceOther: "Sonstiges",
}

var (
	ErrEmptyMake       = errors.New("empty make")
	ErrEmptyModel      = errors.New("empty model")
	ErrEmptyPlate      = errors.New("empty plate")
	ErrInvalidYear     = errors.New("invalid model year")
	ErrInvalidStatus   = errors.New("invalid vehicle status")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidOdometer = errors.New("invalid odometer reading")
	ErrInvalidPrice    = errors.New("invalid price per liter")
	ErrInvalidLiters   = errors.New("invalid fuel amount")
	ErrInvalidCost     = errors.New("invalid cost")
	ErrInvalidType     = errors.New("invalid maintenance type")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ISO returns the date as YYYY-MM-DD, or "" for the zero value.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// RoundCurrency rounds to two decimal places, half away from zero.
func RoundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s VehicleStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusInUse, StatusMaintenance:
		return true
	}
	return false
}

func (v Vehicle) Validate() error {
	if strings.TrimSpace(v.Make) == "" {
		return ErrEmptyMake
	}
	if strings.TrimSpace(v.Model) == "" {
		return ErrEmptyModel
	}
	if strings.TrimSpace(v.Plate) == "" {
		return ErrEmptyPlate
	}
	if v.Year < 1900 || v.Year > time.Now().Year()+1 {
		return ErrInvalidYear
	}
	if !v.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (m MileageRecord) Validate() error {
	if m.Odometer < 0 {
		return ErrInvalidOdometer
	}
	return m.Date.Validate()
}

// ComputeTotalCost derives the total cost from price and liters. It must be
// called before a record is stored so the derived column stays consistent.
func (f *FuelRecord) ComputeTotalCost() {
	f.TotalCost = RoundCurrency(f.PricePerLiter * f.Liters)
}

func (f FuelRecord) Validate() error {
	if f.Odometer < 0 {
		return ErrInvalidOdometer
	}
	if err := f.Date.Validate(); err != nil {
		return err
	}
	if f.PricePerLiter <= 0 || math.IsNaN(f.PricePerLiter) || math.IsInf(f.PricePerLiter, 0) {
		return ErrInvalidPrice
	}
	if f.Liters <= 0 || math.IsNaN(f.Liters) || math.IsInf(f.Liters, 0) {
		return ErrInvalidLiters
	}
	return nil
}

func (t MaintenanceType) Valid() bool {
	_, ok := MaintenanceTypeLabels[t]
	return ok
}

// Label returns the display name, falling back to the raw value for types
// from older schema versions.
func (t MaintenanceType) Label() string {
	if l, ok := MaintenanceTypeLabels[t]; ok {
		return l
	}
	return string(t)
}

func (m MaintenanceRecord) Validate() error {
	if !m.Type.Valid() {
		return ErrInvalidType
	}
	if err := m.DatePerformed.Validate(); err != nil {
		return err
	}
	if m.Odometer != nil && *m.Odometer < 0 {
		return ErrInvalidOdometer
	}
	if m.Cost < 0 || math.IsNaN(m.Cost) || math.IsInf(m.Cost, 0) {
		return ErrInvalidCost
	}
	if m.NextDueKM != nil && *m.NextDueKM < 0 {
		return ErrInvalidOdometer
	}
	return nil
}
