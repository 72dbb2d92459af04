package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serenbook/booking-service/internal/calendar"
)

// Wednesday 2025-09-03; "now" pinned well before it unless a test says
// otherwise.
var (
	wednesday = time.Date(2025, time.September, 3, 0, 0, 0, 0, time.Local)
	longAgo   = time.Date(2025, time.January, 1, 12, 0, 0, 0, time.Local)
)

func nineToSix() *WorkingHours {
	return &WorkingHours{
		StartTime:   "09:00",
		EndTime:     "18:00",
		WorkingDays: []calendar.Weekday{calendar.Monday, calendar.Tuesday, calendar.Wednesday, calendar.Thursday, calendar.Friday},
	}
}

func slotByTime(t *testing.T, slots []TimeSlot, at string) TimeSlot {
	t.Helper()
	for _, s := range slots {
		if s.Time == at {
			return s
		}
	}
	t.Fatalf("no slot at %s", at)
	return TimeSlot{}
}

func TestGenerateSlotsOpenDay(t *testing.T) {
	snap := Snapshot{Hours: nineToSix()}

	slots := GenerateSlots(snap, wednesday, 50, longAgo)

	// 09:00 through 17:30 inclusive on a 30-minute grid.
	require.Len(t, slots, 18)
	assert.Equal(t, "09:00", slots[0].Time)
	assert.Equal(t, "17:30", slots[17].Time)
	for _, s := range slots {
		assert.Equal(t, SlotAvailable, s.Status)
		assert.Equal(t, 50, s.DurationMinutes)
	}
}

func TestGenerateSlotsGridProperties(t *testing.T) {
	snap := Snapshot{Hours: nineToSix()}

	slots := GenerateSlots(snap, wednesday, 50, longAgo)

	prev := -1
	for _, s := range slots {
		m, err := calendar.TimeToMinutes(s.Time)
		require.NoError(t, err)
		assert.Greater(t, m, prev, "times must be strictly increasing")
		assert.Zero(t, m%SlotStepMinutes, "slot %s must sit on the 30-minute grid", s.Time)
		prev = m
	}
}

func TestGenerateSlotsIdempotent(t *testing.T) {
	snap := Snapshot{
		Hours: nineToSix(),
		Appointments: []Appointment{
			{StartMinute: 600, DurationMinutes: 60, Status: StatusConfirmed},
		},
	}

	first := GenerateSlots(snap, wednesday, 50, longAgo)
	second := GenerateSlots(snap, wednesday, 50, longAgo)
	assert.Equal(t, first, second)
}

func TestGenerateSlotsNonWorkingDay(t *testing.T) {
	snap := Snapshot{Hours: nineToSix()}
	sunday := time.Date(2025, time.September, 7, 0, 0, 0, 0, time.Local)

	assert.Empty(t, GenerateSlots(snap, sunday, 50, longAgo))
}

func TestGenerateSlotsNoWorkingHours(t *testing.T) {
	assert.Empty(t, GenerateSlots(Snapshot{}, wednesday, 50, longAgo))
}

func TestGenerateSlotsMalformedWindow(t *testing.T) {
	snap := Snapshot{Hours: &WorkingHours{StartTime: "nine", EndTime: "18:00"}}
	assert.Empty(t, GenerateSlots(snap, wednesday, 50, longAgo))
}

func TestGenerateSlotsEmptyWindow(t *testing.T) {
	// Equal or inverted windows mean zero capacity, not an error.
	equal := Snapshot{Hours: &WorkingHours{StartTime: "09:00", EndTime: "09:00"}}
	inverted := Snapshot{Hours: &WorkingHours{StartTime: "18:00", EndTime: "09:00"}}

	assert.Empty(t, GenerateSlots(equal, wednesday, 50, longAgo))
	assert.Empty(t, GenerateSlots(inverted, wednesday, 50, longAgo))
}

func TestGenerateSlotsPerDayOverride(t *testing.T) {
	hours := nineToSix()
	hours.Overrides = map[calendar.Weekday]Window{
		calendar.Wednesday: {Start: "10:00", End: "12:00"},
	}

	slots := GenerateSlots(Snapshot{Hours: hours}, wednesday, 30, longAgo)

	require.Len(t, slots, 4)
	assert.Equal(t, "10:00", slots[0].Time)
	assert.Equal(t, "11:30", slots[3].Time)
}

func TestGenerateSlotsFullDayBlock(t *testing.T) {
	snap := Snapshot{
		Hours: nineToSix(),
		Blocks: []AvailabilityBlock{
			{Kind: BlockFullDay, StartDate: wednesday},
		},
	}

	slots := GenerateSlots(snap, wednesday, 50, longAgo)

	require.Len(t, slots, 18)
	for _, s := range slots {
		assert.Equal(t, SlotBlocked, s.Status)
	}
}

func TestGenerateSlotsOccupancy(t *testing.T) {
	// Confirmed appointment 10:00-11:00; service duration 50 minutes.
	snap := Snapshot{
		Hours: nineToSix(),
		Appointments: []Appointment{
			{ID: uuid.New(), StartMinute: 600, DurationMinutes: 60, Status: StatusConfirmed},
		},
	}

	slots := GenerateSlots(snap, wednesday, 50, longAgo)

	assert.Equal(t, SlotAvailable, slotByTime(t, slots, "09:00").Status)
	assert.Equal(t, SlotOccupied, slotByTime(t, slots, "09:30").Status) // 09:30+50 overlaps
	assert.Equal(t, SlotOccupied, slotByTime(t, slots, "10:00").Status)
	assert.Equal(t, SlotOccupied, slotByTime(t, slots, "10:30").Status)
	assert.Equal(t, SlotAvailable, slotByTime(t, slots, "11:00").Status)
}

func TestGenerateSlotsCancelledAppointmentIgnored(t *testing.T) {
	snap := Snapshot{
		Hours: nineToSix(),
		Appointments: []Appointment{
			{StartMinute: 600, DurationMinutes: 60, Status: StatusCancelled},
		},
	}

	slots := GenerateSlots(snap, wednesday, 50, longAgo)
	assert.Equal(t, SlotAvailable, slotByTime(t, slots, "10:00").Status)
}

func TestGenerateSlotsNoFalseAvailable(t *testing.T) {
	snap := Snapshot{
		Hours: nineToSix(),
		Appointments: []Appointment{
			{StartMinute: 600, DurationMinutes: 60, Status: StatusConfirmed},
			{StartMinute: 840, DurationMinutes: 90, Status: StatusPending},
		},
	}

	for _, s := range GenerateSlots(snap, wednesday, 50, longAgo) {
		if s.Status != SlotAvailable {
			continue
		}
		m, err := calendar.TimeToMinutes(s.Time)
		require.NoError(t, err)
		for _, a := range snap.Appointments {
			overlap := m < a.StartMinute+a.DurationMinutes && a.StartMinute < m+s.DurationMinutes
			assert.False(t, overlap, "available slot %s overlaps appointment at %d", s.Time, a.StartMinute)
		}
	}
}

func TestGenerateSlotsTimedBlockHalfOpen(t *testing.T) {
	snap := Snapshot{
		Hours: nineToSix(),
		Blocks: []AvailabilityBlock{
			{Kind: BlockTimeRange, StartDate: wednesday, TimeRange: &Window{Start: "09:00", End: "10:00"}},
		},
	}

	slots := GenerateSlots(snap, wednesday, 50, longAgo)

	assert.Equal(t, SlotBlocked, slotByTime(t, slots, "09:00").Status)
	assert.Equal(t, SlotBlocked, slotByTime(t, slots, "09:30").Status) // 50-min slot runs into block
	// A slot starting exactly at the block's end is free.
	assert.Equal(t, SlotAvailable, slotByTime(t, slots, "10:00").Status)
}

func TestGenerateSlotsWholeDayBlockWinsOverOccupancy(t *testing.T) {
	snap := Snapshot{
		Hours: nineToSix(),
		Appointments: []Appointment{
			{StartMinute: 600, DurationMinutes: 60, Status: StatusConfirmed},
		},
		Blocks: []AvailabilityBlock{
			{Kind: BlockFullDay, StartDate: wednesday},
		},
	}

	slots := GenerateSlots(snap, wednesday, 50, longAgo)
	assert.Equal(t, SlotBlocked, slotByTime(t, slots, "10:00").Status)
}

func TestGenerateSlotsRecurringBlockOnlyMatchingWeekday(t *testing.T) {
	block := AvailabilityBlock{
		Kind:      BlockWeeklyRecurring,
		StartDate: time.Date(2025, time.September, 1, 0, 0, 0, 0, time.Local),
		EndDate:   time.Date(2025, time.September, 30, 0, 0, 0, 0, time.Local),
		DayOfWeek: calendar.Wednesday,
		TimeRange: &Window{Start: "14:00", End: "18:00"},
	}
	snap := Snapshot{Hours: nineToSix(), Blocks: []AvailabilityBlock{block}}

	wedSlots := GenerateSlots(snap, wednesday, 30, longAgo)
	assert.Equal(t, SlotBlocked, slotByTime(t, wedSlots, "14:00").Status)
	assert.Equal(t, SlotAvailable, slotByTime(t, wedSlots, "13:30").Status)

	thursday := wednesday.AddDate(0, 0, 1)
	thuSlots := GenerateSlots(snap, thursday, 30, longAgo)
	assert.Equal(t, SlotAvailable, slotByTime(t, thuSlots, "14:00").Status)
}

func TestGenerateSlotsTodayCutoff(t *testing.T) {
	snap := Snapshot{Hours: nineToSix()}
	// It is exactly 10:00 on the requested date.
	now := time.Date(2025, time.September, 3, 10, 0, 0, 0, time.Local)

	slots := GenerateSlots(snap, wednesday, 50, now)

	// The 10:00 slot equals the current minute and is excluded; 10:30 is
	// the first candidate.
	require.NotEmpty(t, slots)
	assert.Equal(t, "10:30", slots[0].Time)
}

func TestGenerateSlotsCutoffOnlyAppliesToday(t *testing.T) {
	snap := Snapshot{Hours: nineToSix()}
	dayBefore := time.Date(2025, time.September, 2, 23, 0, 0, 0, time.Local)

	slots := GenerateSlots(snap, wednesday, 50, dayBefore)
	require.Len(t, slots, 18)
	assert.Equal(t, "09:00", slots[0].Time)
}
