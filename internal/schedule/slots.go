package schedule

import (
	"time"

	"github.com/serenbook/booking-service/internal/calendar"
)

// SlotStepMinutes is the fixed slot grid cadence. Slots always start on
// :00/:30 boundaries regardless of the requested service duration.
const SlotStepMinutes = 30

// GenerateSlots walks the practitioner's effective working window for the
// given date in fixed 30-minute steps and annotates each candidate with a
// status:
//
//	blocked   — a whole-day block applies, or a timed block overlaps the slot
//	occupied  — a non-cancelled appointment overlaps the slot
//	available — otherwise
//
// Whole-day blocks take precedence over occupancy, occupancy over timed
// blocks. When date is today relative to now, candidates starting at or
// before the current minute are suppressed. Slots come back in ascending
// time order.
//
// Missing or malformed working hours, a non-working weekday, or an empty
// window all yield an empty sequence; none of these are errors.
func GenerateSlots(snap Snapshot, date time.Time, durationMinutes int, now time.Time) []TimeSlot {
	if snap.Hours == nil {
		return nil
	}

	day := calendar.WeekdayOf(date)
	if !snap.Hours.WorksOn(day) {
		return nil
	}

	win := EffectiveWindow(day, *snap.Hours)
	start, err := calendar.TimeToMinutes(win.Start)
	if err != nil {
		return nil
	}
	end, err := calendar.TimeToMinutes(win.End)
	if err != nil {
		return nil
	}
	if start >= end {
		return nil
	}

	cutoff := -1
	if calendar.SameDay(date, now) {
		cutoff = calendar.MinuteOfDay(now)
	}

	wholeDayBlocked := IsWholeDayBlocked(date, snap.Blocks)

	slots := make([]TimeSlot, 0, (end-start)/SlotStepMinutes)
	for t := start; t < end; t += SlotStepMinutes {
		if t <= cutoff {
			continue
		}

		status := SlotAvailable
		switch {
		case wholeDayBlocked:
			status = SlotBlocked
		case overlapsAppointment(t, durationMinutes, snap.Appointments):
			status = SlotOccupied
		case IsSlotBlocked(date, t, snap.Blocks, durationMinutes):
			status = SlotBlocked
		}

		slots = append(slots, TimeSlot{
			Time:            calendar.MinutesToTime(t),
			DurationMinutes: durationMinutes,
			Status:          status,
		})
	}

	return slots
}

// overlapsAppointment checks the candidate [start, start+duration) against
// each appointment's own stored duration. Cancelled rows never occupy a slot.
func overlapsAppointment(startMinute, durationMinutes int, appointments []Appointment) bool {
	for _, a := range appointments {
		if a.Status == StatusCancelled {
			continue
		}
		if overlaps(startMinute, startMinute+durationMinutes, a.StartMinute, a.StartMinute+a.DurationMinutes) {
			return true
		}
	}
	return false
}
