package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/serenbook/booking-service/internal/calendar"
	"github.com/serenbook/booking-service/internal/schedule"
)

const dateFormat = "2006-01-02"

type PgRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PgRepository)(nil)

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

// localMidnight re-anchors a scanned DATE value (which pgx returns in UTC) at
// local midnight so it compares cleanly with calendar.ParseLocalDate output.
func localMidnight(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// isOverlapViolation detects the gist exclusion constraint (and any unique
// constraint) on appointments firing for a concurrent double-booking.
func isOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23P01" || pgErr.Code == "23505"
}

func scanPractitioner(row pgx.Row) (*Practitioner, error) {
	var p Practitioner
	err := row.Scan(&p.ID, &p.Name, &p.Specialty, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPractitionerNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanAppointment(row pgx.Row) (*schedule.Appointment, error) {
	var a schedule.Appointment
	var rescheduledBy *string

	err := row.Scan(
		&a.ID,
		&a.PractitionerID,
		&a.PatientID,
		&a.Date,
		&a.StartMinute,
		&a.DurationMinutes,
		&a.Status,
		&rescheduledBy,
		&a.RescheduleReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = localMidnight(a.Date)
	if rescheduledBy != nil {
		by := schedule.Initiator(*rescheduledBy)
		a.RescheduledBy = &by
	}
	return &a, nil
}

// Interface methods

func (r *PgRepository) GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM practitioners
		WHERE id = $1
	`, id)
	return scanPractitioner(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetWorkingHours(ctx context.Context, practitionerID uuid.UUID) (*schedule.WorkingHours, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT practitioner_id, start_time, end_time, working_days
		FROM working_hours
		WHERE practitioner_id = $1
	`, practitionerID)

	var wh schedule.WorkingHours
	var rawDays []int16
	if err := row.Scan(&wh.PractitionerID, &wh.StartTime, &wh.EndTime, &rawDays); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkingHoursNotFound
		}
		return nil, err
	}

	for _, n := range rawDays {
		day, err := calendar.ParseWeekday(int(n))
		if err != nil {
			return nil, fmt.Errorf("working_days for practitioner %s: %w", practitionerID, err)
		}
		wh.WorkingDays = append(wh.WorkingDays, day)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT day_of_week, start_time, end_time
		FROM working_hour_overrides
		WHERE practitioner_id = $1
	`, practitionerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rawDay int16
		var win schedule.Window
		if err := rows.Scan(&rawDay, &win.Start, &win.End); err != nil {
			return nil, err
		}
		day, err := calendar.ParseWeekday(int(rawDay))
		if err != nil {
			return nil, fmt.Errorf("override for practitioner %s: %w", practitionerID, err)
		}
		if wh.Overrides == nil {
			wh.Overrides = make(map[calendar.Weekday]schedule.Window)
		}
		wh.Overrides[day] = win
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &wh, nil
}

func (r *PgRepository) ListDayAppointments(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]schedule.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, practitioner_id, patient_id, date, start_minute, duration_minutes,
		       status, rescheduled_by, reschedule_reason, created_at, updated_at
		FROM appointments
		WHERE practitioner_id = $1
		  AND date = $2
		  AND status <> 'cancelled'
	`, practitionerID, date.Format(dateFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []schedule.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ListBlocks(ctx context.Context, practitionerID uuid.UUID) ([]schedule.AvailabilityBlock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, practitioner_id, kind, start_date, end_date, start_time, end_time,
		       day_of_week, externally_synced, created_at, updated_at
		FROM availability_blocks
		WHERE practitioner_id = $1
	`, practitionerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []schedule.AvailabilityBlock
	for rows.Next() {
		var b schedule.AvailabilityBlock
		var endDate *time.Time
		var startTime, endTime *string
		var rawDay *int16

		err := rows.Scan(
			&b.ID,
			&b.PractitionerID,
			&b.Kind,
			&b.StartDate,
			&endDate,
			&startTime,
			&endTime,
			&rawDay,
			&b.ExternallySynced,
			&b.CreatedAt,
			&b.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		b.StartDate = localMidnight(b.StartDate)
		if endDate != nil {
			b.EndDate = localMidnight(*endDate)
		}
		if startTime != nil && endTime != nil {
			b.TimeRange = &schedule.Window{Start: *startTime, End: *endTime}
		}
		if rawDay != nil {
			day, err := calendar.ParseWeekday(int(*rawDay))
			if err != nil {
				return nil, fmt.Errorf("block %s: %w", b.ID, err)
			}
			b.DayOfWeek = day
		}

		result = append(result, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, practitioner_id, patient_id, date, start_minute, duration_minutes,
		       status, rescheduled_by, reschedule_reason, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, appt schedule.Appointment) (*schedule.Appointment, error) {
	id := appt.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, practitioner_id, patient_id, date, start_minute,
		                          duration_minutes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING id, practitioner_id, patient_id, date, start_minute, duration_minutes,
		          status, rescheduled_by, reschedule_reason, created_at, updated_at
	`, id, appt.PractitionerID, appt.PatientID, appt.Date.Format(dateFormat),
		appt.StartMinute, appt.DurationMinutes, appt.Status)

	created, err := scanAppointment(row)
	if err != nil {
		if isOverlapViolation(err) {
			return nil, ErrSlotNoLongerAvailable
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) RescheduleAppointment(ctx context.Context, id uuid.UUID, date time.Time, startMinute int, by schedule.Initiator, reason *string) (*schedule.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET date = $2,
		    start_minute = $3,
		    rescheduled_by = $4,
		    reschedule_reason = $5,
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('pending', 'confirmed')
		RETURNING id, practitioner_id, patient_id, date, start_minute, duration_minutes,
		          status, rescheduled_by, reschedule_reason, created_at, updated_at
	`, id, date.Format(dateFormat), startMinute, string(by), reason)

	updated, err := scanAppointment(row)
	if err != nil {
		if isOverlapViolation(err) {
			return nil, ErrSlotNoLongerAvailable
		}
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to schedule.AppointmentStatus) (*schedule.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING id, practitioner_id, patient_id, date, start_minute, duration_minutes,
		          status, rescheduled_by, reschedule_reason, created_at, updated_at
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) FindStalePending(ctx context.Context, cutoff time.Time) ([]schedule.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, practitioner_id, patient_id, date, start_minute, duration_minutes,
		       status, rescheduled_by, reschedule_reason, created_at, updated_at
		FROM appointments
		WHERE status = 'pending'
		  AND created_at < $1
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []schedule.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
