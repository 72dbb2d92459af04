package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/serenbook/booking-service/internal/calendar"
	"github.com/serenbook/booking-service/internal/db"
	"github.com/serenbook/booking-service/internal/logging"
)

var specialties = []string{
	"Massage Therapy",
	"Yoga",
	"Nutrition",
	"Acupuncture",
	"Physiotherapy",
	"Psychotherapy",
	"Naturopathy",
	"Pilates",
	"Osteopathy",
	"Life Coaching",
}

func main() {
	logger := logging.New("seed", "dev")
	logger.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	practitioners, err := seedPractitioners(context.Background(), pool, logger, 40)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed practitioners")
	}
	if err := seedPatients(context.Background(), pool, logger, 2000); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedSchedules(context.Background(), pool, logger, practitioners); err != nil {
		logger.Fatal().Err(err).Msg("seed schedules")
	}

	logger.Info().Msg("seed complete")
}

func seedPractitioners(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, count int) ([]uuid.UUID, error) {
	logger.Info().Int("count", count).Msg("seeding practitioners")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO practitioners (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	logger.Info().Msg("practitioners seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, count int) error {
	logger.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}

	return nil
}

// seedSchedules gives every practitioner working hours, and some of them a
// Friday override and a handful of availability blocks over the next month.
func seedSchedules(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, practitioners []uuid.UUID) error {
	logger.Info().Int("count", len(practitioners)).Msg("seeding schedules")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, id := range practitioners {
		startHour := gofakeit.Number(8, 10)
		endHour := gofakeit.Number(16, 19)

		days := []int16{1, 2, 3, 4, 5}
		if gofakeit.Bool() {
			days = append(days, 6)
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO working_hours (practitioner_id, start_time, end_time, working_days, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, fmt.Sprintf("%02d:00", startHour), fmt.Sprintf("%02d:00", endHour), days)
		if err != nil {
			return err
		}

		// A third of practitioners finish early on Fridays.
		if gofakeit.Number(0, 2) == 0 {
			_, err := tx.Exec(ctx, `
				INSERT INTO working_hour_overrides (practitioner_id, day_of_week, start_time, end_time)
				VALUES ($1, $2, $3, $4)
			`, id, int16(calendar.Friday), fmt.Sprintf("%02d:00", startHour), "14:00")
			if err != nil {
				return err
			}
		}

		if err := seedBlocks(ctx, tx, id); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Info().Msg("schedules seeded")
	return nil
}

func seedBlocks(ctx context.Context, tx pgx.Tx, practitionerID uuid.UUID) error {
	today := time.Now()

	// One full-day block in the next two weeks.
	if gofakeit.Bool() {
		day := today.AddDate(0, 0, gofakeit.Number(1, 14)).Format("2006-01-02")
		_, err := tx.Exec(ctx, `
			INSERT INTO availability_blocks (id, practitioner_id, kind, start_date, externally_synced, created_at, updated_at)
			VALUES ($1, $2, 'full_day', $3, false, now(), now())
		`, uuid.New(), practitionerID, day)
		if err != nil {
			return err
		}
	}

	// A lunch-hour block over the next month, mirrored from an external
	// calendar for some practitioners.
	if gofakeit.Bool() {
		start := today.Format("2006-01-02")
		end := today.AddDate(0, 1, 0).Format("2006-01-02")
		_, err := tx.Exec(ctx, `
			INSERT INTO availability_blocks (id, practitioner_id, kind, start_date, end_date, start_time, end_time, externally_synced, created_at, updated_at)
			VALUES ($1, $2, 'time_range', $3, $4, '12:00', '13:00', $5, now(), now())
		`, uuid.New(), practitionerID, start, end, gofakeit.Bool())
		if err != nil {
			return err
		}
	}

	// A recurring Wednesday-afternoon block for a few.
	if gofakeit.Number(0, 3) == 0 {
		start := today.Format("2006-01-02")
		end := today.AddDate(0, 2, 0).Format("2006-01-02")
		_, err := tx.Exec(ctx, `
			INSERT INTO availability_blocks (id, practitioner_id, kind, start_date, end_date, start_time, end_time, day_of_week, externally_synced, created_at, updated_at)
			VALUES ($1, $2, 'weekly_recurring', $3, $4, '14:00', '18:00', $5, false, now(), now())
		`, uuid.New(), practitionerID, start, end, int16(calendar.Wednesday))
		if err != nil {
			return err
		}
	}

	return nil
}
