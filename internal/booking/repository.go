package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/serenbook/booking-service/internal/schedule"
)

var (
	ErrPractitionerNotFound = errors.New("practitioner not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrWorkingHoursNotFound = errors.New("working hours not configured")
)

type Practitioner struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// Snapshot reads for slot computation. The three are independent and
	// the service issues them concurrently.
	GetWorkingHours(ctx context.Context, practitionerID uuid.UUID) (*schedule.WorkingHours, error)
	ListDayAppointments(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]schedule.Appointment, error)
	ListBlocks(ctx context.Context, practitionerID uuid.UUID) ([]schedule.AvailabilityBlock, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error)
	CreateAppointment(ctx context.Context, appt schedule.Appointment) (*schedule.Appointment, error)
	// RescheduleAppointment overwrites date/time in place and records who
	// moved the appointment and why. It must fail on terminal statuses.
	RescheduleAppointment(ctx context.Context, id uuid.UUID, date time.Time, startMinute int, by schedule.Initiator, reason *string) (*schedule.Appointment, error)
	// UpdateAppointmentStatus is a compare-and-swap on status.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to schedule.AppointmentStatus) (*schedule.Appointment, error)

	// Expiry worker
	FindStalePending(ctx context.Context, cutoff time.Time) ([]schedule.Appointment, error)
}
