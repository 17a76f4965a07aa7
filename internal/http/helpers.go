package http

import (
	"strconv"
	"strings"
	"time"

	"kfz/internal/core"
)

// timeNow is swapped out in tests that pin the clock.
var timeNow = time.Now

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

// formatGermanNumber renders a float with decimal comma and thousands dots,
// e.g. 1234.5 with 2 decimals becomes "1.234,50".
func formatGermanNumber(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(digit)
	}
	if hasFrac {
		b.WriteByte(',')
		b.WriteString(fracPart)
	}
	return b.String()
}

// formatEuros renders an amount as "1.234,56 €".
func formatEuros(v float64) string {
	return formatGermanNumber(v, 2) + " €"
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// templateFuncs is the formatting vocabulary available to all templates.
func templateFuncs() map[string]any {
	return map[string]any{
		"euro": formatEuros,
		"num": func(v float64, decimals int) string {
			return formatGermanNumber(v, decimals)
		},
		"km": func(v int64) string {
			return formatGermanNumber(float64(v), 0) + " km"
		},
		"date":       core.FormatGermanDate,
		"typeLabel":  core.MaintenanceType.Label,
		"statusBadge": func(s core.VehicleStatus) string {
			switch s {
			case core.StatusAvailable:
				return "success"
			case core.StatusInUse:
				return "primary"
			case core.StatusMaintenance:
				return "warning"
			}
			return "secondary"
		},
	}
}
