// Package timewin resolves month boundaries and calendar timezones.
package timewin

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidMonthFormat is returned when a month specifier is not of the
// form YYYY-MM.
var ErrInvalidMonthFormat = errors.New("invalid month format, use YYYY-MM")

// windowsTZMap maps Windows timezone display names returned by the Graph
// API to IANA zone identifiers.
var windowsTZMap = map[string]string{
	"Israel Standard Time":         "Asia/Jerusalem",
	"UTC":                          "UTC",
	"GMT Standard Time":            "Europe/London",
	"E. Europe Standard Time":      "Europe/Bucharest",
	"Eastern Standard Time":        "America/New_York",
	"Central Europe Standard Time": "Europe/Budapest",
	"W. Europe Standard Time":      "Europe/Berlin",
	"Pacific Standard Time":        "America/Los_Angeles",
}

// Window is a closed UTC time range covering a single calendar month,
// clamped to "now" for the current or a future month.
type Window struct {
	Start time.Time
	End   time.Time
	Key   string // YYYY-MM label
}

// StartISO formats the window start for Graph API query filters.
func (w Window) StartISO() string {
	return w.Start.UTC().Format("2006-01-02T15:04:05") + "Z"
}

// EndISO formats the window end for Graph API query filters.
func (w Window) EndISO() string {
	return w.End.UTC().Format("2006-01-02T15:04:05") + "Z"
}

// ResolveWindow computes the UTC window for the given YYYY-MM specifier.
// An empty specifier selects the current UTC month. The window end is the
// minimum of now and the last second of the month.
func ResolveWindow(monthSpec string, now time.Time) (Window, error) {
	now = now.UTC()

	var start time.Time
	if monthSpec != "" {
		parsed, err := time.Parse("2006-01", monthSpec)
		if err != nil {
			return Window{}, fmt.Errorf("%w: %q", ErrInvalidMonthFormat, monthSpec)
		}
		start = time.Date(parsed.Year(), parsed.Month(), 1, 0, 0, 0, 0, time.UTC)
	} else {
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	end := start.AddDate(0, 1, 0).Add(-time.Second)
	if now.Before(end) {
		end = now
	}

	return Window{Start: start, End: end, Key: start.Format("2006-01")}, nil
}

// ResolveTimezone converts a timezone label from an event time part into a
// location. Labels containing a region/city separator are looked up
// directly; otherwise the Windows display-name table is consulted. Lookup
// failures silently yield the fallback.
func ResolveTimezone(label string, fallback *time.Location) *time.Location {
	if label == "" {
		return fallback
	}
	if strings.Contains(label, "/") {
		if loc, err := time.LoadLocation(label); err == nil {
			return loc
		}
	}
	if mapped, ok := windowsTZMap[label]; ok {
		if loc, err := time.LoadLocation(mapped); err == nil {
			return loc
		}
	}
	return fallback
}

// NormalizeEventTime parses a raw event wall-clock string in the given
// source zone label and converts it to the output zone. Fractional seconds
// are normalized to 6 digits and a trailing Z becomes an explicit offset
// before parsing. Returns false when the value is missing or unparsable.
func NormalizeEventTime(dateTime, timeZone string, out *time.Location) (time.Time, bool) {
	if dateTime == "" {
		return time.Time{}, false
	}

	value := normalizeISO(dateTime)

	if t, err := time.Parse("2006-01-02T15:04:05-07:00", value); err == nil {
		return t.In(out), true
	}

	sourceZone := ResolveTimezone(timeZone, out)
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", value, sourceZone); err == nil {
		return t.In(out), true
	}

	return time.Time{}, false
}

// normalizeISO pads or truncates fractional seconds to exactly 6 digits
// and rewrites a trailing Z as a +00:00 offset.
func normalizeISO(value string) string {
	if strings.HasSuffix(value, "Z") {
		value = strings.TrimSuffix(value, "Z") + "+00:00"
	}

	base, rest, found := strings.Cut(value, ".")
	if !found {
		return value
	}

	frac := rest
	offset := ""
	if i := strings.IndexAny(rest, "+-"); i >= 0 {
		frac = rest[:i]
		offset = rest[i:]
	}

	if len(frac) > 6 {
		frac = frac[:6]
	} else {
		frac += strings.Repeat("0", 6-len(frac))
	}

	return base + "." + frac + offset
}
