package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/serenbook/booking-service/internal/booking"
	"github.com/serenbook/booking-service/internal/config"
	"github.com/serenbook/booking-service/internal/db"
	"github.com/serenbook/booking-service/internal/logging"
	redisclient "github.com/serenbook/booking-service/internal/redis"
)

// The expiry worker cancels pending bookings that were never confirmed
// (payment abandoned) within the pending TTL, releasing their slots.
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("expiry-worker", "dev")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New("expiry-worker", cfg.Env)
	logger.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Dur("pending_ttl", cfg.PendingTTL).
		Msg("expiry-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisScheduleLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(repo, locker, cfg, logger)

	// Run once at startup
	runOnce(rootCtx, svc, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping expiry worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := svc.CancelStalePending(runCtx); err != nil {
		logger.Error().Err(err).Msg("expiry run error")
		return
	}
	logger.Info().Dur("elapsed", time.Since(start)).Msg("expiry run complete")
}
