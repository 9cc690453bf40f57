package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/appointment-platform/internal/event"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

type Service struct {
	repo    Repository
	cache   *CountCache // may be nil, counts then always hit the store
	horizon time.Duration
	log     zerolog.Logger
}

func NewService(repo Repository, cache *CountCache, horizon time.Duration, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		horizon: horizon,
		log:     log,
	}
}

// Process classifies one event envelope and persists the derived
// notification. Unknown event types are discarded without error; by the
// time this runs the publisher has already been acknowledged, so a
// persistence failure is logged and otherwise invisible to the origin.
func (s *Service) Process(ctx context.Context, env event.Envelope) error {
	message, recipientType, recipientID, err := Classify(env.EventType, env.Data)
	if err != nil {
		if errors.Is(err, ErrUnknownEventType) {
			s.log.Warn().Str("event_type", env.EventType).Msg("discarding event of unknown type")
			return nil
		}
		return err
	}

	payload, err := json.Marshal(env.Data)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	stored, err := s.repo.Insert(ctx, Notification{
		EventType:     env.EventType,
		Message:       message,
		RecipientType: recipientType,
		RecipientID:   recipientID,
		Payload:       payload,
		EnvelopeTS:    env.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	s.invalidateCount(ctx, stored.RecipientID, stored.RecipientType)

	s.log.Info().
		Str("event_type", stored.EventType).
		Str("recipient_type", string(stored.RecipientType)).
		Str("recipient_id", stored.RecipientID).
		Msg("notification stored")

	return nil
}

// List returns a recipient's notifications, newest first.
func (s *Service) List(ctx context.Context, recipientID string, recipientType RecipientType, limit, skip int) ([]Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if skip < 0 {
		skip = 0
	}

	return s.repo.ListByRecipient(ctx, recipientID, recipientType, limit, skip)
}

// MarkRead marks one notification read. Idempotent: re-marking a read
// notification succeeds without changing anything.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		return err
	}

	s.invalidateCount(ctx, n.RecipientID, n.RecipientType)
	return nil
}

// UnreadCount returns how many unread notifications a recipient has.
func (s *Service) UnreadCount(ctx context.Context, recipientID string, recipientType RecipientType) (int64, error) {
	if s.cache != nil {
		if count, ok, err := s.cache.Get(ctx, recipientID, recipientType); err != nil {
			s.log.Warn().Err(err).Msg("unread-count cache read failed")
		} else if ok {
			return count, nil
		}
	}

	count, err := s.repo.CountUnread(ctx, recipientID, recipientType)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, recipientID, recipientType, count); err != nil {
			s.log.Warn().Err(err).Msg("unread-count cache write failed")
		}
	}

	return count, nil
}

// Sweep deletes notifications that are read and older than the retention
// horizon, returning the deleted count. Safe to run concurrently with
// ingestion since unread rows are never eligible.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.horizon)

	deleted, err := s.repo.DeleteReadOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep notifications: %w", err)
	}

	s.log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("retention sweep complete")
	return deleted, nil
}

func (s *Service) invalidateCount(ctx context.Context, recipientID string, recipientType RecipientType) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, recipientID, recipientType); err != nil {
		s.log.Warn().Err(err).Msg("unread-count cache invalidation failed")
	}
}
