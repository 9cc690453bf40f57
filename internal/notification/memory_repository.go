package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests and local
// development.
type MemoryRepository struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*Notification
	seq  map[uuid.UUID]int64
	next int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		rows: make(map[uuid.UUID]*Notification),
		seq:  make(map[uuid.UUID]int64),
	}
}

func (r *MemoryRepository) Insert(_ context.Context, n Notification) (*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n.ID = uuid.New()
	n.Read = false
	n.CreatedAt = time.Now()

	stored := n
	r.rows[n.ID] = &stored
	r.next++
	r.seq[n.ID] = r.next

	out := stored
	return &out, nil
}

func (r *MemoryRepository) ListByRecipient(_ context.Context, recipientID string, recipientType RecipientType, limit, skip int) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*Notification
	for _, n := range r.rows {
		if n.RecipientID == recipientID && n.RecipientType == recipientType {
			matched = append(matched, n)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return r.seq[matched[i].ID] > r.seq[matched[j].ID]
	})

	result := []Notification{}
	for i, n := range matched {
		if i < skip {
			continue
		}
		if len(result) >= limit {
			break
		}
		result = append(result, *n)
	}
	return result, nil
}

func (r *MemoryRepository) MarkRead(_ context.Context, id uuid.UUID) (*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.rows[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}

	n.Read = true

	out := *n
	return &out, nil
}

func (r *MemoryRepository) CountUnread(_ context.Context, recipientID string, recipientType RecipientType) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, n := range r.rows {
		if n.RecipientID == recipientID && n.RecipientType == recipientType && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) DeleteReadOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, n := range r.rows {
		if n.Read && n.CreatedAt.Before(cutoff) {
			delete(r.rows, id)
			delete(r.seq, id)
			deleted++
		}
	}
	return deleted, nil
}
