package model

import (
	"fmt"
	"time"
)

// CalendarDate is a civil date with no time or zone attached.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseCalendarDate accepts exactly YYYY-MM-DD and rejects impossible dates such as
// 2025-13-40 or 2025-02-30.
func ParseCalendarDate(s string) (CalendarDate, error) {
	if len(s) != len("2006-01-02") || s[4] != '-' || s[7] != '-' {
		return CalendarDate{}, &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	y, ok1 := atoiDigits(s[0:4])
	m, ok2 := atoiDigits(s[5:7])
	d, ok3 := atoiDigits(s[8:10])
	if !ok1 || !ok2 || !ok3 {
		return CalendarDate{}, &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	if m < 1 || m > 12 || d < 1 || d > daysIn(time.Month(m), y) {
		return CalendarDate{}, &ValidationError{Field: "date", Reason: "is not a valid calendar date"}
	}
	return CalendarDate{Year: y, Month: time.Month(m), Day: d}, nil
}

// DateOf returns the civil date of t as seen in loc.
func DateOf(t time.Time, loc *time.Location) CalendarDate {
	y, m, d := t.In(loc).Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Weekday is computed on the proleptic Gregorian calendar, independent of any zone.
func (d CalendarDate) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).Weekday()
}

// Start is local midnight of d in loc.
func (d CalendarDate) Start(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// At combines d and a time of day into an instant in loc.
func (d CalendarDate) At(t TimeOfDay, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour(), t.Minute(), 0, 0, loc)
}

// AddDays moves d by n civil days.
func (d CalendarDate) AddDays(n int) CalendarDate {
	t := time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC)
	return CalendarDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d CalendarDate) Before(o CalendarDate) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// TimeOfDay is a wall-clock time in whole minutes since midnight, 0..1439.
type TimeOfDay int

// ParseTimeOfDay accepts exactly HH:MM in 24-hour form, zero-padded.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%q: must be HH:MM", s)
	}
	h, ok1 := atoiDigits(s[0:2])
	m, ok2 := atoiDigits(s[3:5])
	if !ok1 || !ok2 || h > 23 || m > 59 {
		return 0, fmt.Errorf("%q: must be HH:MM between 00:00 and 23:59", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// ClockOf returns the time of day of t in loc, truncated to the minute.
func ClockOf(t time.Time, loc *time.Location) TimeOfDay {
	lt := t.In(loc)
	return TimeOfDay(lt.Hour()*60 + lt.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func atoiDigits(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, len(s) > 0
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
