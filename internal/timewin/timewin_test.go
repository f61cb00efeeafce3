package timewin

import (
	"errors"
	"testing"
	"time"
)

func TestResolveWindowPastMonth(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	w, err := ResolveWindow("2024-01", now)
	if err != nil {
		t.Fatalf("ResolveWindow failed: %v", err)
	}

	wantStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !w.Start.Equal(wantStart) {
		t.Errorf("Expected start %v, got %v", wantStart, w.Start)
	}

	wantEnd := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
	if !w.End.Equal(wantEnd) {
		t.Errorf("Expected end %v, got %v", wantEnd, w.End)
	}

	if w.Key != "2024-01" {
		t.Errorf("Expected key 2024-01, got %s", w.Key)
	}
}

func TestResolveWindowDecemberRollover(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	w, err := ResolveWindow("2024-12", now)
	if err != nil {
		t.Fatalf("ResolveWindow failed: %v", err)
	}

	wantEnd := time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
	if !w.End.Equal(wantEnd) {
		t.Errorf("Expected end %v, got %v", wantEnd, w.End)
	}
}

func TestResolveWindowCurrentMonthClampsToNow(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 30, 0, 0, time.UTC)

	w, err := ResolveWindow("2026-08", now)
	if err != nil {
		t.Fatalf("ResolveWindow failed: %v", err)
	}

	if !w.End.Equal(now) {
		t.Errorf("Expected end clamped to now %v, got %v", now, w.End)
	}
}

func TestResolveWindowDefaultsToCurrentMonth(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 30, 0, 0, time.UTC)

	w, err := ResolveWindow("", now)
	if err != nil {
		t.Fatalf("ResolveWindow failed: %v", err)
	}

	wantStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if !w.Start.Equal(wantStart) {
		t.Errorf("Expected start %v, got %v", wantStart, w.Start)
	}

	if w.Key != "2026-08" {
		t.Errorf("Expected key 2026-08, got %s", w.Key)
	}
}

func TestResolveWindowInvalidFormat(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	for _, spec := range []string{"2024/01", "abcd", "2024-1", "202401", "2024-00"} {
		_, err := ResolveWindow(spec, now)
		if !errors.Is(err, ErrInvalidMonthFormat) {
			t.Errorf("ResolveWindow(%q): expected ErrInvalidMonthFormat, got %v", spec, err)
		}
	}
}

func TestWindowISO(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	w, err := ResolveWindow("2024-03", now)
	if err != nil {
		t.Fatalf("ResolveWindow failed: %v", err)
	}

	if got := w.StartISO(); got != "2024-03-01T00:00:00Z" {
		t.Errorf("Expected start ISO 2024-03-01T00:00:00Z, got %s", got)
	}

	if got := w.EndISO(); got != "2024-03-31T23:59:59Z" {
		t.Errorf("Expected end ISO 2024-03-31T23:59:59Z, got %s", got)
	}
}

func TestResolveTimezone(t *testing.T) {
	fallback := time.UTC

	tests := []struct {
		name  string
		label string
		want  string
	}{
		{name: "IANA label", label: "Asia/Jerusalem", want: "Asia/Jerusalem"},
		{name: "Windows display name", label: "Israel Standard Time", want: "Asia/Jerusalem"},
		{name: "Windows display name Europe", label: "W. Europe Standard Time", want: "Europe/Berlin"},
		{name: "unknown label", label: "Moon Standard Time", want: "UTC"},
		{name: "empty label", label: "", want: "UTC"},
		{name: "bogus IANA label", label: "Not/AZone", want: "UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := ResolveTimezone(tt.label, fallback)
			if loc.String() != tt.want {
				t.Errorf("ResolveTimezone(%q) = %s, want %s", tt.label, loc, tt.want)
			}
		})
	}
}

func TestNormalizeEventTimeFractionalSeconds(t *testing.T) {
	got, ok := NormalizeEventTime("2024-03-01T10:00:00.1234567Z", "", time.UTC)
	if !ok {
		t.Fatal("Expected parse to succeed")
	}

	want := time.Date(2024, 3, 1, 10, 0, 0, 123456000, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestNormalizeEventTimeShortFraction(t *testing.T) {
	got, ok := NormalizeEventTime("2024-03-01T10:00:00.5Z", "", time.UTC)
	if !ok {
		t.Fatal("Expected parse to succeed")
	}

	want := time.Date(2024, 3, 1, 10, 0, 0, 500000000, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestNormalizeEventTimeLocalizesSourceZone(t *testing.T) {
	// Offset-less value carrying a Windows zone label: 10:00 in Israel
	// (UTC+2 on March 1st) is 08:00 UTC.
	got, ok := NormalizeEventTime("2024-03-01T10:00:00", "Israel Standard Time", time.UTC)
	if !ok {
		t.Fatal("Expected parse to succeed")
	}

	want := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestNormalizeEventTimeConvertsToOutputZone(t *testing.T) {
	jerusalem, err := time.LoadLocation("Asia/Jerusalem")
	if err != nil {
		t.Fatalf("LoadLocation failed: %v", err)
	}

	got, ok := NormalizeEventTime("2024-03-01T10:00:00Z", "UTC", jerusalem)
	if !ok {
		t.Fatal("Expected parse to succeed")
	}

	if got.Hour() != 12 {
		t.Errorf("Expected 12:00 local, got %02d:%02d", got.Hour(), got.Minute())
	}
}

func TestNormalizeEventTimeMissingValue(t *testing.T) {
	if _, ok := NormalizeEventTime("", "UTC", time.UTC); ok {
		t.Error("Expected missing dateTime to yield false")
	}
}

func TestNormalizeEventTimeUnparsableValue(t *testing.T) {
	if _, ok := NormalizeEventTime("not-a-time", "UTC", time.UTC); ok {
		t.Error("Expected unparsable dateTime to yield false")
	}
}
