// Package schedule implements the availability engine: resolving a
// practitioner's effective working window, matching availability blocks
// against dates and times, and generating the bookable slot grid for a day.
// Everything here is pure; callers supply a snapshot of the backing rows.
package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/serenbook/booking-service/internal/calendar"
)

type AppointmentStatus string

const (
	StatusPending            AppointmentStatus = "pending"
	StatusConfirmed          AppointmentStatus = "confirmed"
	StatusCompleted          AppointmentStatus = "completed"
	StatusCancelled          AppointmentStatus = "cancelled"
	StatusPatientNoShow      AppointmentStatus = "patient_no_show"
	StatusProfessionalNoShow AppointmentStatus = "professional_no_show"
)

// transitions is the full appointment state machine. Terminal states have no
// entry. A reschedule is not a transition; it keeps the status and changes
// date/time.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusPatientNoShow, StatusProfessionalNoShow},
}

// CanTransition reports whether an appointment may move from one status to
// another.
func CanTransition(from, to AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a status has no outgoing transitions.
func (s AppointmentStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotOccupied  SlotStatus = "occupied"
	SlotBlocked   SlotStatus = "blocked"
	// SlotNotOffered is reserved for per-service-type exclusions; the
	// generator never emits it today.
	SlotNotOffered SlotStatus = "not_offered"
)

// Window is a wall-clock time-of-day range, e.g. {"09:00", "18:00"}.
type Window struct {
	Start string
	End   string
}

// WorkingHours is a practitioner's declared availability: a default daily
// window, the weekdays on which they accept bookings, and optional per-weekday
// window overrides.
type WorkingHours struct {
	PractitionerID uuid.UUID
	StartTime      string
	EndTime        string
	WorkingDays    []calendar.Weekday
	Overrides      map[calendar.Weekday]Window
}

// WorksOn reports whether the practitioner accepts bookings on the given
// weekday. An empty working-days set means Monday through Friday.
func (wh WorkingHours) WorksOn(day calendar.Weekday) bool {
	if len(wh.WorkingDays) == 0 {
		return day >= calendar.Monday && day <= calendar.Friday
	}
	for _, d := range wh.WorkingDays {
		if d == day {
			return true
		}
	}
	return false
}

type BlockKind string

const (
	BlockFullDay         BlockKind = "full_day"
	BlockTimeRange       BlockKind = "time_range"
	BlockWeeklyRecurring BlockKind = "weekly_recurring"
)

// AvailabilityBlock is a practitioner-declared interval during which no
// bookings are offered. Blocks are owned and edited outside the engine; the
// engine only reads a snapshot per computation.
type AvailabilityBlock struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	Kind           BlockKind
	StartDate      time.Time // local midnight, inclusive
	EndDate        time.Time // local midnight, inclusive; zero means StartDate
	TimeRange      *Window          // nil means the whole day is blocked
	DayOfWeek      calendar.Weekday // set only for weekly_recurring
	// ExternallySynced marks blocks mirrored from an external calendar.
	// They are read-only to the booking UI but block slots like any other.
	ExternallySynced bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Initiator identifies who drives a booking or reschedule. It is always
// passed explicitly rather than read from ambient session state.
type Initiator string

const (
	InitiatorPatient      Initiator = "patient"
	InitiatorPractitioner Initiator = "practitioner"
)

type Appointment struct {
	ID               uuid.UUID
	PractitionerID   uuid.UUID
	PatientID        uuid.UUID
	Date             time.Time // local midnight
	StartMinute      int       // minutes since midnight
	DurationMinutes  int
	Status           AppointmentStatus
	RescheduledBy    *Initiator
	RescheduleReason *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// StartTime renders the appointment's start as HH:MM.
func (a Appointment) StartTime() string {
	return calendar.MinutesToTime(a.StartMinute)
}

// TimeSlot is a derived booking opportunity. Slots are computed fresh on
// every query and never persisted.
type TimeSlot struct {
	Time            string     `json:"time"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          SlotStatus `json:"status"`
}

// Snapshot is one practitioner's scheduling state as read at a single point
// in time: working hours (nil when none configured), the non-cancelled
// appointments for the target date, and all availability blocks.
type Snapshot struct {
	Hours        *WorkingHours
	Appointments []Appointment
	Blocks       []AvailabilityBlock
}
