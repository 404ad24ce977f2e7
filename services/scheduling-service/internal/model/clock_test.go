package model

import (
	"errors"
	"testing"
	"time"
)

func TestParseCalendarDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-03-14", true},
		{"2024-02-29", true},
		{"2025-02-29", false},
		{"2025-13-40", false},
		{"2025-1-05", false},
		{"2025/01/05", false},
		{"2025-01-05T00:00:00Z", false},
		{"", false},
		{"abcd-ef-gh", false},
	}
	for _, tc := range cases {
		d, err := ParseCalendarDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if !tc.ok {
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("%q: expected ErrInvalidInput, got %v", tc.in, err)
			}
			continue
		}
		if d.String() != tc.in {
			t.Fatalf("%q: round trip gave %q", tc.in, d.String())
		}
	}
}

func TestWeekdayIgnoresZones(t *testing.T) {
	d, _ := ParseCalendarDate("2025-03-09") // Sunday; US DST starts at 02:00 local
	if d.Weekday() != time.Sunday {
		t.Fatalf("expected Sunday, got %s", d.Weekday())
	}

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	if got := DateOf(d.Start(ny), ny); got != d {
		t.Fatalf("expected %s, got %s", d, got)
	}
	// 23 hours later is still the same civil day on the spring-forward date.
	if got := DateOf(d.Start(ny).Add(23*time.Hour-time.Minute), ny); got != d {
		t.Fatalf("expected %s, got %s", d, got)
	}
	if got := d.AddDays(1).Start(ny).Sub(d.Start(ny)); got != 23*time.Hour {
		t.Fatalf("expected a 23h day, got %s", got)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	good := map[string]TimeOfDay{"00:00": 0, "09:00": 540, "23:59": 1439}
	for in, want := range good {
		got, err := ParseTimeOfDay(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %d (err %v), want %d", in, got, err, want)
		}
		if got.String() != in {
			t.Fatalf("%q: String() = %q", in, got.String())
		}
	}
	for _, in := range []string{"9:00", "24:00", "12:60", "12-00", "", "1200", "ab:cd"} {
		if _, err := ParseTimeOfDay(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}

func TestTimeOfDayOrderMatchesString(t *testing.T) {
	a, _ := ParseTimeOfDay("09:30")
	b, _ := ParseTimeOfDay("10:00")
	if !(a < b) || !(a.String() < b.String()) {
		t.Fatal("expected numeric and lexicographic order to agree")
	}
}

func TestAppointmentEffectiveStatus(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	past := Appointment{Status: StatusScheduled, StartsAt: now.Add(-time.Hour)}
	if past.EffectiveStatus(now) != StatusCompleted {
		t.Fatal("expected past scheduled appointment to be completed")
	}
	canceled := Appointment{Status: StatusCanceled, StartsAt: now.Add(-time.Hour)}
	if canceled.EffectiveStatus(now) != StatusCanceled || canceled.Blocks() {
		t.Fatal("canceled appointment must stay canceled and not block")
	}
}

func TestScheduleWindowValidate(t *testing.T) {
	w := ScheduleWindow{DayOfWeek: time.Monday, Start: 540, End: 540, Enabled: true}
	if err := w.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected start==end to fail, got %v", err)
	}
	w.Enabled = false
	if err := w.Validate(); err != nil {
		t.Fatalf("disabled degenerate window should pass, got %v", err)
	}
	w.Enabled = true
	w.Start, w.End = 600, 540
	var verr *ValidationError
	if err := w.Validate(); !errors.As(err, &verr) || verr.Field != "endTime" {
		t.Fatalf("expected endTime error, got %v", err)
	}
}
