package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/serenbook/booking-service/internal/calendar"
	"github.com/serenbook/booking-service/internal/config"
	redisclient "github.com/serenbook/booking-service/internal/redis"
	"github.com/serenbook/booking-service/internal/schedule"
)

var (
	// ErrSlotNoLongerAvailable is the user-recoverable "someone got there
	// first" condition: the UI should re-offer fresh slots, not retry.
	ErrSlotNoLongerAvailable   = errors.New("slot is no longer available")
	ErrBookingInProgress       = errors.New("slot is currently being booked, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidInitiator        = errors.New("initiator must be patient or practitioner")
	ErrInvalidDuration         = errors.New("duration must be a positive number of minutes")
	ErrInvalidInitialStatus    = errors.New("initial status must be pending or confirmed")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	cfg    config.Config
	log    zerolog.Logger

	// now is swapped out in tests to pin the today-cutoff behaviour.
	now func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// TimeSlotsForDate is the single shared slot query used by the patient and
// practitioner booking screens and by both reschedule screens. It takes a
// fresh snapshot on every call; slots are never cached.
func (s *Service) TimeSlotsForDate(ctx context.Context, practitionerID uuid.UUID, dateStr string, durationMinutes int) ([]schedule.TimeSlot, error) {
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	date, err := calendar.ParseLocalDate(dateStr)
	if err != nil {
		return nil, err
	}

	snap, err := s.snapshot(ctx, practitionerID, date, uuid.Nil)
	if err != nil {
		return nil, err
	}

	return schedule.GenerateSlots(snap, date, durationMinutes, s.now()), nil
}

// snapshot issues the three backing reads concurrently; they are read-only
// and mutually independent. A missing working-hours row is a legitimate
// "no configured availability" state, not an error. When exclude is set, the
// matching appointment is dropped so a reschedule does not collide with its
// own prior occupancy.
func (s *Service) snapshot(ctx context.Context, practitionerID uuid.UUID, date time.Time, exclude uuid.UUID) (schedule.Snapshot, error) {
	var snap schedule.Snapshot

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hours, err := s.repo.GetWorkingHours(gctx, practitionerID)
		if err != nil {
			if errors.Is(err, ErrWorkingHoursNotFound) {
				return nil
			}
			return fmt.Errorf("load working hours: %w", err)
		}
		snap.Hours = hours
		return nil
	})

	g.Go(func() error {
		appts, err := s.repo.ListDayAppointments(gctx, practitionerID, date)
		if err != nil {
			return fmt.Errorf("load appointments: %w", err)
		}
		if exclude != uuid.Nil {
			kept := appts[:0]
			for _, a := range appts {
				if a.ID != exclude {
					kept = append(kept, a)
				}
			}
			appts = kept
		}
		snap.Appointments = appts
		return nil
	})

	g.Go(func() error {
		blocks, err := s.repo.ListBlocks(gctx, practitionerID)
		if err != nil {
			return fmt.Errorf("load availability blocks: %w", err)
		}
		snap.Blocks = blocks
		return nil
	})

	if err := g.Wait(); err != nil {
		return schedule.Snapshot{}, err
	}

	return snap, nil
}

type BookingRequest struct {
	PractitionerID  uuid.UUID
	PatientID       uuid.UUID
	Date            string // YYYY-MM-DD
	Time            string // HH:MM
	DurationMinutes int
	// InitialStatus is pending or confirmed depending on the payment flow.
	// Empty defaults to pending.
	InitialStatus schedule.AppointmentStatus
}

// Book places an appointment onto a slot. The target slot is re-validated
// under a per practitioner+date lock immediately before the write, closing
// the race between "slot shown available" and "slot persisted". The DB-level
// exclusion constraint remains the hard guarantee; a losing concurrent writer
// surfaces as ErrSlotNoLongerAvailable either way.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*schedule.Appointment, error) {
	status := req.InitialStatus
	if status == "" {
		status = schedule.StatusPending
	}
	if status != schedule.StatusPending && status != schedule.StatusConfirmed {
		return nil, ErrInvalidInitialStatus
	}
	if req.DurationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}

	date, err := calendar.ParseLocalDate(req.Date)
	if err != nil {
		return nil, err
	}
	startMinute, err := calendar.TimeToMinutes(req.Time)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPractitionerByID(ctx, req.PractitionerID); err != nil {
		if errors.Is(err, ErrPractitionerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load practitioner: %w", err)
	}
	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	var created *schedule.Appointment

	err = s.locker.WithScheduleLock(ctx, req.PractitionerID, date, func(lockCtx context.Context) error {
		if err := s.ensureAvailable(lockCtx, req.PractitionerID, date, startMinute, req.DurationMinutes, uuid.Nil); err != nil {
			return err
		}

		appt, err := s.repo.CreateAppointment(lockCtx, schedule.Appointment{
			PractitionerID:  req.PractitionerID,
			PatientID:       req.PatientID,
			Date:            date,
			StartMinute:     startMinute,
			DurationMinutes: req.DurationMinutes,
			Status:          status,
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingInProgress
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("practitioner_id", req.PractitionerID.String()).
		Str("date", req.Date).
		Str("time", req.Time).
		Str("status", string(created.Status)).
		Msg("appointment booked")

	return created, nil
}

type RescheduleRequest struct {
	Date      string // YYYY-MM-DD
	Time      string // HH:MM
	Initiator schedule.Initiator
	Reason    string
}

// Reschedule moves an existing appointment to a new date/time under the same
// slot-validity rules as a fresh booking. The appointment being moved is
// excluded from the occupancy check so a no-op reschedule onto its own slot
// is not rejected. The row is mutated in place; status stays unchanged and
// must be non-terminal.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req RescheduleRequest) (*schedule.Appointment, error) {
	if req.Initiator != schedule.InitiatorPatient && req.Initiator != schedule.InitiatorPractitioner {
		return nil, ErrInvalidInitiator
	}

	date, err := calendar.ParseLocalDate(req.Date)
	if err != nil {
		return nil, err
	}
	startMinute, err := calendar.TimeToMinutes(req.Time)
	if err != nil {
		return nil, err
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, ErrInvalidStatusTransition
	}

	var reason *string
	if req.Reason != "" {
		reason = &req.Reason
	}

	var updated *schedule.Appointment

	err = s.locker.WithScheduleLock(ctx, appt.PractitionerID, date, func(lockCtx context.Context) error {
		if err := s.ensureAvailable(lockCtx, appt.PractitionerID, date, startMinute, appt.DurationMinutes, appt.ID); err != nil {
			return err
		}

		moved, err := s.repo.RescheduleAppointment(lockCtx, appt.ID, date, startMinute, req.Initiator, reason)
		if err != nil {
			return err
		}

		updated = moved
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingInProgress
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", id.String()).
		Str("date", req.Date).
		Str("time", req.Time).
		Str("initiated_by", string(req.Initiator)).
		Msg("appointment rescheduled")

	return updated, nil
}

// ensureAvailable recomputes the slot grid from a fresh snapshot and rejects
// unless the target time is present with status available.
func (s *Service) ensureAvailable(ctx context.Context, practitionerID uuid.UUID, date time.Time, startMinute, durationMinutes int, exclude uuid.UUID) error {
	snap, err := s.snapshot(ctx, practitionerID, date, exclude)
	if err != nil {
		return err
	}

	target := calendar.MinutesToTime(startMinute)
	for _, slot := range schedule.GenerateSlots(snap, date, durationMinutes, s.now()) {
		if slot.Time == target {
			if slot.Status == schedule.SlotAvailable {
				return nil
			}
			return ErrSlotNoLongerAvailable
		}
	}

	// Off-grid or outside the working window.
	return ErrSlotNoLongerAvailable
}

// GetAppointment retrieves an appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

// Confirm moves a pending appointment to confirmed, typically after payment.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	return s.transition(ctx, id, schedule.StatusConfirmed)
}

// Cancel releases the appointment's slot. Allowed from pending or confirmed.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	return s.transition(ctx, id, schedule.StatusCancelled)
}

// Complete closes out a confirmed appointment that took place.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	return s.transition(ctx, id, schedule.StatusCompleted)
}

// MarkNoShow records that one party failed to attend. The party is the
// absentee, not the reporter.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID, party schedule.Initiator) (*schedule.Appointment, error) {
	switch party {
	case schedule.InitiatorPatient:
		return s.transition(ctx, id, schedule.StatusPatientNoShow)
	case schedule.InitiatorPractitioner:
		return s.transition(ctx, id, schedule.StatusProfessionalNoShow)
	default:
		return nil, ErrInvalidInitiator
	}
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to schedule.AppointmentStatus) (*schedule.Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !schedule.CanTransition(appt.Status, to) {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Status changed under us between read and CAS.
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	return updated, nil
}

// CancelStalePending cancels pending appointments that were never confirmed
// within the pending TTL, releasing their slots. Called periodically by the
// expiry worker.
func (s *Service) CancelStalePending(ctx context.Context) error {
	cutoff := s.now().Add(-s.cfg.PendingTTL)

	stale, err := s.repo.FindStalePending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find stale pending appointments: %w", err)
	}

	for _, appt := range stale {
		_, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, schedule.StatusPending, schedule.StatusCancelled)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			s.log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to cancel stale appointment")
			continue
		}
		s.log.Info().Str("appointment_id", appt.ID.String()).Msg("stale pending appointment cancelled")
	}

	return nil
}
