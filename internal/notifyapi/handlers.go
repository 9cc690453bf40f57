package notifyapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/appointment-platform/internal/event"
	"github.com/medbook/appointment-platform/internal/notification"
)

// How long a deferred ingest may run after its HTTP response went out.
const processTimeout = 10 * time.Second

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func ingestEventHandler(svc *notification.Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req IngestEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if req.EventType == "" || req.Data == nil {
			writeError(w, http.StatusBadRequest, "invalid_event", "eventType and data are required")
			return
		}

		// Acknowledge before processing. The publisher never learns about
		// classification or persistence failures; those are logged here only.
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Event received"})

		env := event.Envelope{
			EventType: req.EventType,
			Data:      req.Data,
			Timestamp: req.Timestamp,
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
			defer cancel()

			if err := svc.Process(ctx, env); err != nil {
				log.Error().Err(err).Str("event_type", env.EventType).Msg("deferred event processing failed")
			}
		}()
	}
}

func listNotificationsHandler(svc *notification.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recipientID := chi.URLParam(r, "recipientId")
		recipientType := notification.RecipientType(chi.URLParam(r, "recipientType"))

		limit := queryInt(r, "limit", 0)
		skip := queryInt(r, "skip", 0)

		items, err := svc.List(r.Context(), recipientID, recipientType, limit, skip)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		resp := ListNotificationsResponse{Notifications: make([]NotificationResponse, 0, len(items))}
		for i := range items {
			resp.Notifications = append(resp.Notifications, toNotificationResponse(&items[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func markReadHandler(svc *notification.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_notification_id", "id must be a valid UUID")
			return
		}

		if err := svc.MarkRead(r.Context(), id); err != nil {
			if errors.Is(err, notification.ErrNotificationNotFound) {
				writeError(w, http.StatusNotFound, "notification_not_found", "notification not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		writeJSON(w, http.StatusOK, MessageResponse{Message: "Notification marked as read"})
	}
}

func unreadCountHandler(svc *notification.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recipientID := chi.URLParam(r, "recipientId")
		recipientType := notification.RecipientType(chi.URLParam(r, "recipientType"))

		count, err := svc.UnreadCount(r.Context(), recipientID, recipientType)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		writeJSON(w, http.StatusOK, UnreadCountResponse{UnreadCount: count})
	}
}

func cleanupHandler(svc *notification.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleted, err := svc.Sweep(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		writeJSON(w, http.StatusOK, CleanupResponse{
			Message:      "Cleanup completed",
			DeletedCount: deleted,
		})
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
