package schedule

import "github.com/serenbook/booking-service/internal/calendar"

// EffectiveWindow resolves the working window for a specific weekday: the
// per-day override when one exists with both bounds set, the default window
// otherwise. It performs no start<end validation; an empty or inverted window
// simply yields zero slots downstream.
func EffectiveWindow(day calendar.Weekday, wh WorkingHours) Window {
	if ov, ok := wh.Overrides[day]; ok && ov.Start != "" && ov.End != "" {
		return ov
	}
	return Window{Start: wh.StartTime, End: wh.EndTime}
}
