package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	Insert(ctx context.Context, n Notification) (*Notification, error)

	ListByRecipient(ctx context.Context, recipientID string, recipientType RecipientType, limit, skip int) ([]Notification, error)

	// MarkRead flips the read flag. Marking an already-read row is a no-op
	// success; there is no way back to unread.
	MarkRead(ctx context.Context, id uuid.UUID) (*Notification, error)

	CountUnread(ctx context.Context, recipientID string, recipientType RecipientType) (int64, error)

	// DeleteReadOlderThan removes read rows created before the cutoff and
	// returns how many were deleted. Unread rows are never touched.
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
