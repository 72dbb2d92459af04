package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/serenbook/booking-service/internal/api"
	"github.com/serenbook/booking-service/internal/booking"
	"github.com/serenbook/booking-service/internal/config"
	"github.com/serenbook/booking-service/internal/db"
	"github.com/serenbook/booking-service/internal/logging"
	redisclient "github.com/serenbook/booking-service/internal/redis"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("api-server", "dev")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New("api-server", cfg.Env)
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

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

	// Connect Redis
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

	router := api.NewRouter(api.RouterConfig{
		Service: svc,
		PgPool:  pgPool,
		Redis:   rdb,
		Logger:  logger,
		Env:     cfg.Env,
		Version: version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	case <-rootCtx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("api-server stopped")
}
