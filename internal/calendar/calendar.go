// Package calendar holds the date and time-of-day primitives shared by the
// scheduling engine. Dates are always anchored at local midnight and weekdays
// use the ISO numbering (Monday=1 .. Sunday=7).
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidDate    = errors.New("invalid date format")
	ErrInvalidTime    = errors.New("invalid time format")
	ErrInvalidWeekday = errors.New("weekday out of range")
)

// Weekday is an ISO weekday number, Monday=1 through Sunday=7.
// The zero value means "unset".
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// WeekdayOf remaps Go's Sunday=0 convention to ISO numbering.
func WeekdayOf(t time.Time) Weekday {
	wd := t.Weekday()
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

// ParseWeekday validates a raw weekday number at the data-access boundary.
func ParseWeekday(n int) (Weekday, error) {
	if n < 1 || n > 7 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidWeekday, n)
	}
	return Weekday(n), nil
}

// ParseLocalDate parses a YYYY-MM-DD string into a time anchored at local
// midnight. A trailing time or zone suffix ("2024-03-01T00:00:00Z") is
// discarded rather than parsed, so the resulting calendar day never shifts
// for callers west of UTC.
func ParseLocalDate(s string) (time.Time, error) {
	if len(s) > 10 {
		s = s[:10]
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// SameDay reports whether a and b fall on the same local calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// TimeToMinutes parses an HH:MM or HH:MM:SS wall-clock string into minutes
// since midnight (0..1439). Seconds are discarded.
func TimeToMinutes(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	return h*60 + m, nil
}

// MinutesToTime renders minutes since midnight as HH:MM.
func MinutesToTime(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// MinuteOfDay returns the wall-clock minute of t, ignoring seconds.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
