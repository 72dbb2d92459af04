package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocalDate(t *testing.T) {
	d, err := ParseLocalDate("2025-09-03")
	require.NoError(t, err)

	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, time.September, d.Month())
	assert.Equal(t, 3, d.Day())
	assert.Equal(t, 0, d.Hour())
	assert.Equal(t, time.Local, d.Location())
}

func TestParseLocalDateDiscardsSuffix(t *testing.T) {
	// A UTC timestamp must not shift the calendar day for local zones
	// west of UTC.
	d, err := ParseLocalDate("2025-09-03T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 3, d.Day())

	plain, err := ParseLocalDate("2025-09-03")
	require.NoError(t, err)
	assert.True(t, d.Equal(plain))
}

func TestParseLocalDateInvalid(t *testing.T) {
	for _, in := range []string{"", "03/09/2025", "2025-13-01", "2025-02-30", "not a date"} {
		_, err := ParseLocalDate(in)
		assert.ErrorIs(t, err, ErrInvalidDate, "input %q", in)
	}
}

func TestTimeToMinutes(t *testing.T) {
	cases := map[string]int{
		"00:00":    0,
		"09:30":    570,
		"23:59":    1439,
		"10:15:30": 615, // seconds discarded
	}
	for in, want := range cases {
		got, err := TimeToMinutes(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestTimeToMinutesInvalid(t *testing.T) {
	for _, in := range []string{"", "24:00", "09:60", "9h30", "09", "-1:00"} {
		_, err := TimeToMinutes(in)
		assert.ErrorIs(t, err, ErrInvalidTime, "input %q", in)
	}
}

func TestMinutesToTime(t *testing.T) {
	assert.Equal(t, "00:00", MinutesToTime(0))
	assert.Equal(t, "09:30", MinutesToTime(570))
	assert.Equal(t, "23:59", MinutesToTime(1439))
}

func TestWeekdayOf(t *testing.T) {
	monday := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.Local)
	sunday := time.Date(2025, time.September, 7, 0, 0, 0, 0, time.Local)

	assert.Equal(t, Monday, WeekdayOf(monday))
	assert.Equal(t, Wednesday, WeekdayOf(monday.AddDate(0, 0, 2)))
	// Go's Sunday=0 must map to ISO 7, not 0.
	assert.Equal(t, Sunday, WeekdayOf(sunday))
}

func TestParseWeekday(t *testing.T) {
	for n := 1; n <= 7; n++ {
		day, err := ParseWeekday(n)
		require.NoError(t, err)
		assert.Equal(t, Weekday(n), day)
	}

	for _, n := range []int{0, 8, -1, 100} {
		_, err := ParseWeekday(n)
		assert.ErrorIs(t, err, ErrInvalidWeekday, "input %d", n)
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2025, time.September, 3, 0, 0, 0, 0, time.Local)
	b := time.Date(2025, time.September, 3, 23, 59, 0, 0, time.Local)
	c := time.Date(2025, time.September, 4, 0, 0, 0, 0, time.Local)

	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(a, c))
}

func TestMinuteOfDay(t *testing.T) {
	at := time.Date(2025, time.September, 3, 10, 17, 45, 0, time.Local)
	assert.Equal(t, 617, MinuteOfDay(at))
}
