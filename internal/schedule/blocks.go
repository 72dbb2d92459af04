package schedule

import (
	"time"

	"github.com/serenbook/booking-service/internal/calendar"
)

// overlaps reports whether the half-open minute intervals [aStart,aEnd) and
// [bStart,bEnd) intersect. An interval ending exactly where the other begins
// does not count.
func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// BlockAppliesToDate reports whether a block is in effect on the given date
// (local midnight). The date range is inclusive on both ends; a missing end
// date means a single-day block. Weekly-recurring blocks additionally require
// a weekday match.
func BlockAppliesToDate(b AvailabilityBlock, date time.Time) bool {
	end := b.EndDate
	if end.IsZero() {
		end = b.StartDate
	}
	if date.Before(b.StartDate) || date.After(end) {
		return false
	}
	if b.Kind == BlockWeeklyRecurring {
		return b.DayOfWeek != 0 && calendar.WeekdayOf(date) == b.DayOfWeek
	}
	return true
}

// BlockCoversTime reports whether a block covers the candidate slot
// [startMinute, startMinute+durationMinutes). A block without a time range
// covers every time of day. Bounds that fail to parse are treated as not
// covering rather than blocking the whole day.
func BlockCoversTime(b AvailabilityBlock, startMinute, durationMinutes int) bool {
	if b.TimeRange == nil {
		return true
	}
	blockStart, err := calendar.TimeToMinutes(b.TimeRange.Start)
	if err != nil {
		return false
	}
	blockEnd, err := calendar.TimeToMinutes(b.TimeRange.End)
	if err != nil {
		return false
	}
	return overlaps(startMinute, startMinute+durationMinutes, blockStart, blockEnd)
}

// IsSlotBlocked reports whether any block both applies to the date and covers
// the candidate slot. Pure existential check; order among blocks is
// irrelevant.
func IsSlotBlocked(date time.Time, startMinute int, blocks []AvailabilityBlock, durationMinutes int) bool {
	for _, b := range blocks {
		if BlockAppliesToDate(b, date) && BlockCoversTime(b, startMinute, durationMinutes) {
			return true
		}
	}
	return false
}

// IsWholeDayBlocked reports whether any applicable block has no time bounds
// at all, which blocks the entire day. This includes weekly-recurring blocks
// declared without a time range.
func IsWholeDayBlocked(date time.Time, blocks []AvailabilityBlock) bool {
	for _, b := range blocks {
		if b.TimeRange == nil && BlockAppliesToDate(b, date) {
			return true
		}
	}
	return false
}
