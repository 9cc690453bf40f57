package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/medbook/appointment-platform/internal/api"
	"github.com/medbook/appointment-platform/internal/appointment"
	"github.com/medbook/appointment-platform/internal/auth"
	"github.com/medbook/appointment-platform/internal/config"
	"github.com/medbook/appointment-platform/internal/db"
	"github.com/medbook/appointment-platform/internal/event"
	"github.com/medbook/appointment-platform/internal/identity"
)

const version = "0.1.0"

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "appointment-server").Logger()
	log.Info().Msg("appointment-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	log.Info().Str("env", cfg.Env).Str("http_port", cfg.AppointmentHTTPPort).Msg("configuration loaded")

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

	verifier := auth.NewVerifier(cfg.JWTSecret)
	identityClient := identity.NewClient(cfg.IdentityBaseURL, cfg.EventTimeout)
	publisher := event.NewHTTPPublisher(cfg.NotificationBaseURL, cfg.EventTimeout, log)

	repo := appointment.NewPgRepository(pgPool)
	svc := appointment.NewService(repo, publisher, identityClient, log)

	router := api.NewRouter(api.RouterConfig{
		Service:  svc,
		Verifier: verifier,
		PgPool:   pgPool,
		Env:      cfg.Env,
		Version:  version,
		Logger:   log,
	})

	server := &http.Server{
		Addr:    ":" + cfg.AppointmentHTTPPort,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down appointment-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
