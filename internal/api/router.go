package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/medbook/appointment-platform/internal/appointment"
	"github.com/medbook/appointment-platform/internal/auth"
	"github.com/medbook/appointment-platform/internal/httpmw"
)

type RouterConfig struct {
	Service  *appointment.Service
	Verifier *auth.Verifier
	PgPool   *pgxpool.Pool
	Env      string
	Version  string
	Logger   zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(httpmw.RequestID)
	r.Use(httpmw.Logging(cfg.Logger))
	r.Use(httpmw.Recover(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/api/appointments", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Verifier))

		r.Get("/", listAppointmentsHandler(cfg.Service))
		r.Get("/{id}", getAppointmentHandler(cfg.Service))

		r.With(auth.RequireRole(auth.RolePatient)).Post("/", createAppointmentHandler(cfg.Service))
		r.With(auth.RequireRole(auth.RolePatient)).Patch("/{id}/cancel", cancelAppointmentHandler(cfg.Service))
		r.With(auth.RequireRole(auth.RoleDoctor)).Patch("/{id}/status", updateStatusHandler(cfg.Service))
	})

	return r
}
