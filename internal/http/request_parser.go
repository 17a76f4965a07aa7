// This file implements utilities for parsing and validating HTTP request
// data shared by the form handlers.
package http

import (
	"net/http"
	"strconv"
	"strings"

	"kfz/internal/core"
)

// parseID extracts a positive integer id from a form or query parameter.
func parseID(r *http.Request, key string) (int64, bool) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// vehicleIDFromRequest reads the vehicle id from "vehicle_id", falling back
// to "id".
func vehicleIDFromRequest(r *http.Request) (int64, bool) {
	if id, ok := parseID(r, "vehicle_id"); ok {
		return id, true
	}
	return parseID(r, "id")
}

// formDecimal reads a German-formatted decimal form field.
func formDecimal(r *http.Request, key string) float64 {
	return core.ParseDecimal(r.FormValue(key))
}

// formInt reads an integer form field, tolerating German decimal notation.
func formInt(r *http.Request, key string) int64 {
	return int64(core.ParseDecimal(r.FormValue(key)))
}

// formOptionalInt returns nil when the field is empty.
func formOptionalInt(r *http.Request, key string) *int64 {
	if strings.TrimSpace(r.FormValue(key)) == "" {
		return nil
	}
	v := formInt(r, key)
	return &v
}

// formOptionalFloat returns nil when the field is empty.
func formOptionalFloat(r *http.Request, key string) *float64 {
	if strings.TrimSpace(r.FormValue(key)) == "" {
		return nil
	}
	v := formDecimal(r, key)
	return &v
}

// formDate reads a date form field in ISO or German notation.
func formDate(r *http.Request, key string) core.Date {
	return core.ParseGermanDate(r.FormValue(key))
}
