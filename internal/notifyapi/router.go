package notifyapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medbook/appointment-platform/internal/httpmw"
	"github.com/medbook/appointment-platform/internal/notification"
)

type RouterConfig struct {
	Service *notification.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
	Logger  zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(httpmw.RequestID)
	r.Use(httpmw.Logging(cfg.Logger))
	r.Use(httpmw.Recover(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Post("/api/events", ingestEventHandler(cfg.Service, cfg.Logger))

	r.Route("/api/notifications", func(r chi.Router) {
		r.Get("/{recipientId}/{recipientType}", listNotificationsHandler(cfg.Service))
		r.Get("/{recipientId}/{recipientType}/unread-count", unreadCountHandler(cfg.Service))
		r.Patch("/{id}/read", markReadHandler(cfg.Service))
		r.Delete("/cleanup", cleanupHandler(cfg.Service))
	})

	return r
}
