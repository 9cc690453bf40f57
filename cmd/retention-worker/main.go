package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/medbook/appointment-platform/internal/config"
	"github.com/medbook/appointment-platform/internal/db"
	"github.com/medbook/appointment-platform/internal/notification"
	redisclient "github.com/medbook/appointment-platform/internal/redis"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "retention-worker").Logger()
	log.Info().Msg("retention-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	log.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Dur("horizon", cfg.RetentionHorizon).
		Msg("running retention worker")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	repo := notification.NewPgRepository(pgPool)
	svc := notification.NewService(repo, nil, cfg.RetentionHorizon, log)
	locker := redisclient.NewRedisSweepLocker(rdb, 30*time.Second)

	// Run once at startup
	runOnce(rootCtx, svc, locker, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping retention worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, locker, log)
		}
	}
}

func runOnce(ctx context.Context, svc *notification.Service, locker redisclient.Locker, log zerolog.Logger) {
	start := time.Now()

	err := locker.WithSweepLock(ctx, func(lockCtx context.Context) error {
		_, err := svc.Sweep(lockCtx)
		return err
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			log.Info().Msg("another sweep is in progress, skipping this run")
			return
		}
		log.Error().Err(err).Msg("sweep run error")
		return
	}

	log.Info().Dur("took", time.Since(start)).Msg("sweep run complete")
}
