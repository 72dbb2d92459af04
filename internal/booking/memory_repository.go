package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/serenbook/booking-service/internal/schedule"
)

// MemoryRepository is an in-memory Repository for tests and local
// development. It mirrors the DB exclusion constraint: appointment writes
// fail with ErrSlotNoLongerAvailable on overlap, exactly like a losing
// concurrent writer against Postgres.
type MemoryRepository struct {
	mu            sync.Mutex
	practitioners map[uuid.UUID]*Practitioner
	patients      map[uuid.UUID]*Patient
	hours         map[uuid.UUID]*schedule.WorkingHours
	blocks        map[uuid.UUID][]schedule.AvailabilityBlock
	appointments  map[uuid.UUID]*schedule.Appointment
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		practitioners: make(map[uuid.UUID]*Practitioner),
		patients:      make(map[uuid.UUID]*Patient),
		hours:         make(map[uuid.UUID]*schedule.WorkingHours),
		blocks:        make(map[uuid.UUID][]schedule.AvailabilityBlock),
		appointments:  make(map[uuid.UUID]*schedule.Appointment),
	}
}

// Seeding helpers.

func (r *MemoryRepository) AddPractitioner(p Practitioner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.practitioners[p.ID] = &p
}

func (r *MemoryRepository) AddPatient(p Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = &p
}

func (r *MemoryRepository) SetWorkingHours(wh schedule.WorkingHours) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hours[wh.PractitionerID] = &wh
}

func (r *MemoryRepository) AddBlock(b schedule.AvailabilityBlock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks[b.PractitionerID] = append(r.blocks[b.PractitionerID], b)
}

// Repository implementation.

func (r *MemoryRepository) GetPractitionerByID(_ context.Context, id uuid.UUID) (*Practitioner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.practitioners[id]
	if !ok {
		return nil, ErrPractitionerNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *MemoryRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *MemoryRepository) GetWorkingHours(_ context.Context, practitionerID uuid.UUID) (*schedule.WorkingHours, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wh, ok := r.hours[practitionerID]
	if !ok {
		return nil, ErrWorkingHoursNotFound
	}
	copied := *wh
	return &copied, nil
}

func (r *MemoryRepository) ListDayAppointments(_ context.Context, practitionerID uuid.UUID, date time.Time) ([]schedule.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []schedule.Appointment
	for _, a := range r.appointments {
		if a.PractitionerID == practitionerID && a.Date.Equal(date) && a.Status != schedule.StatusCancelled {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (r *MemoryRepository) ListBlocks(_ context.Context, practitionerID uuid.UUID) ([]schedule.AvailabilityBlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]schedule.AvailabilityBlock(nil), r.blocks[practitionerID]...), nil
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *MemoryRepository) overlapsLocked(candidate schedule.Appointment, ignore uuid.UUID) bool {
	for _, a := range r.appointments {
		if a.ID == ignore || a.Status == schedule.StatusCancelled {
			continue
		}
		if a.PractitionerID != candidate.PractitionerID || !a.Date.Equal(candidate.Date) {
			continue
		}
		if candidate.StartMinute < a.StartMinute+a.DurationMinutes &&
			a.StartMinute < candidate.StartMinute+candidate.DurationMinutes {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, appt schedule.Appointment) (*schedule.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.overlapsLocked(appt, uuid.Nil) {
		return nil, ErrSlotNoLongerAvailable
	}
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	now := time.Now()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	r.appointments[appt.ID] = &appt
	copied := appt
	return &copied, nil
}

func (r *MemoryRepository) RescheduleAppointment(_ context.Context, id uuid.UUID, date time.Time, startMinute int, by schedule.Initiator, reason *string) (*schedule.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || a.Status.Terminal() {
		return nil, ErrAppointmentNotFound
	}
	moved := *a
	moved.Date = date
	moved.StartMinute = startMinute
	if r.overlapsLocked(moved, id) {
		return nil, ErrSlotNoLongerAvailable
	}
	moved.RescheduledBy = &by
	moved.RescheduleReason = reason
	moved.UpdatedAt = time.Now()
	r.appointments[id] = &moved
	copied := moved
	return &copied, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to schedule.AppointmentStatus) (*schedule.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	copied := *a
	return &copied, nil
}

func (r *MemoryRepository) FindStalePending(_ context.Context, cutoff time.Time) ([]schedule.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []schedule.Appointment
	for _, a := range r.appointments {
		if a.Status == schedule.StatusPending && a.CreatedAt.Before(cutoff) {
			result = append(result, *a)
		}
	}
	return result, nil
}
