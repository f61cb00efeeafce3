// Package dateparse provides natural language date parsing for CLI flags.
package dateparse

import (
	"fmt"
	"time"

	"github.com/tj/go-naturaldate"
)

// Parse parses a date string which can be:
// - Natural language: "today", "yesterday", "last month", etc.
// - ISO 8601 date: "2025-01-15"
// - ISO 8601 datetime: "2025-01-15T09:00:00"
//
// The reference time is used for relative expressions (e.g., "yesterday" is
// relative to ref). If ref is zero, time.Now() is used.
func Parse(s string, ref time.Time) (time.Time, error) {
	return parse(s, ref, naturaldate.Future)
}

// ParseWithPast parses a date string with past direction for expressions
// like "last week".
func ParseWithPast(s string, ref time.Time) (time.Time, error) {
	return parse(s, ref, naturaldate.Past)
}

func parse(s string, ref time.Time, dir naturaldate.Direction) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}

	if ref.IsZero() {
		ref = time.Now()
	}

	// Try ISO 8601 formats first
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, ref.Location()); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, ref.Location()); err == nil {
		return t, nil
	}

	t, err := naturaldate.Parse(s, ref, naturaldate.WithDirection(dir))
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse date %q: %w", s, err)
	}

	return t, nil
}

// MonthOf resolves a date expression to the month containing it, in
// YYYY-MM form. Relative expressions lean to the past, so "last month"
// and "3 weeks ago" behave as expected.
func MonthOf(s string, ref time.Time) (string, error) {
	t, err := ParseWithPast(s, ref)
	if err != nil {
		return "", err
	}
	return t.Format("2006-01"), nil
}
