package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/serenbook/booking-service/internal/booking"
	"github.com/serenbook/booking-service/internal/schedule"
)

type RouterConfig struct {
	Service *booking.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Slot query shared by the booking and reschedule screens for both roles
	r.Get("/practitioners/{id}/slots", listSlotsHandler(cfg.Service))

	// Appointment endpoints
	r.Post("/appointments", bookAppointmentHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/confirm", statusTransitionHandler(func(req *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
		return cfg.Service.Confirm(req.Context(), id)
	}))
	r.Post("/appointments/{id}/cancel", statusTransitionHandler(func(req *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
		return cfg.Service.Cancel(req.Context(), id)
	}))
	r.Post("/appointments/{id}/complete", statusTransitionHandler(func(req *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
		return cfg.Service.Complete(req.Context(), id)
	}))
	r.Post("/appointments/{id}/no-show", noShowHandler(cfg.Service))

	return r
}
