package notification

import (
	"time"

	"github.com/google/uuid"
)

type RecipientType string

const (
	RecipientPatient RecipientType = "patient"
	RecipientDoctor  RecipientType = "doctor"
)

type Notification struct {
	ID            uuid.UUID
	EventType     string
	Message       string
	RecipientType RecipientType
	RecipientID   string
	// Payload keeps the original event data for audit and debugging.
	Payload    []byte
	Read       bool
	EnvelopeTS string
	CreatedAt  time.Time
}
