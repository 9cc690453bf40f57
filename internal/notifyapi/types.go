package notifyapi

import (
	"encoding/json"
	"time"

	"github.com/medbook/appointment-platform/internal/notification"
)

type IngestEventRequest struct {
	EventType string         `json:"eventType"`
	Data      map[string]any `json:"data"`
	Timestamp string         `json:"timestamp"`
}

type NotificationResponse struct {
	ID            string          `json:"id"`
	EventType     string          `json:"eventType"`
	Message       string          `json:"message"`
	RecipientType string          `json:"recipientType"`
	RecipientID   string          `json:"recipientId"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Read          bool            `json:"read"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type ListNotificationsResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unreadCount"`
}

type CleanupResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toNotificationResponse(n *notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:            n.ID.String(),
		EventType:     n.EventType,
		Message:       n.Message,
		RecipientType: string(n.RecipientType),
		RecipientID:   n.RecipientID,
		Payload:       json.RawMessage(n.Payload),
		Read:          n.Read,
		CreatedAt:     n.CreatedAt,
	}
}
