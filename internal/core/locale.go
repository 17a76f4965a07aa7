// Package core holds the domain types and the computational pieces of the
// fleet application: locale parsing, fuel statistics and the maintenance
// due-check. Everything in here is pure and free of I/O.
//
// This file converts between German user input ("1.234,56", "25.12.2023")
// and canonical machine forms.
package core

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidNumber = errors.New("invalid number")

var (
	isoDateRe    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	germanDateRe = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
	slashDateRe  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// normalizeDecimal strips thousands-separator dots and turns the decimal
// comma into a decimal point.
func normalizeDecimal(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	return strings.ReplaceAll(s, ",", ".")
}

// ParseDecimal converts a German-formatted number to a float64.
// An empty string yields 0, and malformed input degrades to the longest
// parseable numeric prefix, mirroring the forgiving form handling of the
// original application. Use ParseDecimalStrict where bad input must be
// reported instead of swallowed.
func ParseDecimal(s string) float64 {
	n := normalizeDecimal(s)
	if n == "" {
		return 0
	}
	if v, err := strconv.ParseFloat(n, 64); err == nil && !math.IsInf(v, 0) && !math.IsNaN(v) {
		return v
	}
	for i := len(n) - 1; i > 0; i-- {
		if v, err := strconv.ParseFloat(n[:i], 64); err == nil && !math.IsInf(v, 0) && !math.IsNaN(v) {
			return v
		}
	}
	return 0
}

// ParseDecimalStrict is the error-reporting variant used by the CSV import.
func ParseDecimalStrict(s string) (float64, error) {
	n := normalizeDecimal(s)
	if n == "" {
		return 0, ErrInvalidNumber
	}
	v, err := strconv.ParseFloat(n, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrInvalidNumber
	}
	return v, nil
}

// ParseGermanDate accepts either ISO (YYYY-MM-DD) passthrough or the German
// D.M.YYYY form and returns the zero Date when the input does not name a
// real calendar date.
func ParseGermanDate(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}
	if isoDateRe.MatchString(s) {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return Date{}
		}
		return Date{Time: t}
	}
	if m := germanDateRe.FindStringSubmatch(s); m != nil {
		return dateFromParts(m[3], m[2], m[1])
	}
	return Date{}
}

// ParseFlexibleDate tries, in order, ISO, DD.MM.YYYY and DD/MM/YYYY.
// The CSV import accepts all three.
func ParseFlexibleDate(s string) Date {
	s = strings.TrimSpace(s)
	if d := ParseGermanDate(s); !d.IsZero() {
		return d
	}
	if m := slashDateRe.FindStringSubmatch(s); m != nil {
		return dateFromParts(m[3], m[2], m[1])
	}
	return Date{}
}

// dateFromParts builds a Date and rejects inputs that time.Date would
// silently normalize (e.g. 31.02. becoming 03.03.).
func dateFromParts(year, month, day string) Date {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return Date{}
	}
	return Date{Time: t}
}

// FormatGermanDate renders a date as DD.MM.YYYY for display, or "" for the
// zero value. Display-only, never fed back into computation.
func FormatGermanDate(d Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02.01.2006")
}
