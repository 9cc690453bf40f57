package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/appointment-platform/internal/event"
)

func newTestService(horizon time.Duration) (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	svc := NewService(repo, nil, horizon, zerolog.Nop())
	return svc, repo
}

func createdEnvelope() event.Envelope {
	return event.Envelope{
		EventType: "appointment.created",
		Data: map[string]any{
			"appointmentId":   "a-1",
			"patientId":       "p-1",
			"patientName":     "Alice Kim",
			"doctorId":        "d-1",
			"doctorName":      "House",
			"appointmentDate": "2025-03-01",
			"appointmentTime": "10:00",
		},
		Timestamp: "2025-02-20T09:00:00Z",
	}
}

func TestProcessStoresClassifiedNotification(t *testing.T) {
	svc, _ := newTestService(30 * 24 * time.Hour)

	require.NoError(t, svc.Process(context.Background(), createdEnvelope()))

	items, err := svc.List(context.Background(), "d-1", RecipientDoctor, 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)

	n := items[0]
	assert.Equal(t, "appointment.created", n.EventType)
	assert.Equal(t, "New appointment request from Alice Kim on 2025-03-01 at 10:00", n.Message)
	assert.Equal(t, RecipientDoctor, n.RecipientType)
	assert.Equal(t, "d-1", n.RecipientID)
	assert.False(t, n.Read)
	assert.Equal(t, "2025-02-20T09:00:00Z", n.EnvelopeTS)
	assert.JSONEq(t, `{
		"appointmentId": "a-1",
		"patientId": "p-1",
		"patientName": "Alice Kim",
		"doctorId": "d-1",
		"doctorName": "House",
		"appointmentDate": "2025-03-01",
		"appointmentTime": "10:00"
	}`, string(n.Payload))
}

func TestProcessDiscardsUnknownEventType(t *testing.T) {
	svc, repo := newTestService(30 * 24 * time.Hour)

	env := createdEnvelope()
	env.EventType = "appointment.rescheduled"

	require.NoError(t, svc.Process(context.Background(), env), "unknown types are not an error")
	assert.Empty(t, repo.rows)
}

func TestListPagination(t *testing.T) {
	svc, _ := newTestService(30 * 24 * time.Hour)

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Process(context.Background(), createdEnvelope()))
	}

	page, err := svc.List(context.Background(), "d-1", RecipientDoctor, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := svc.List(context.Background(), "d-1", RecipientDoctor, 10, 3)
	require.NoError(t, err)
	assert.Len(t, rest, 2)

	// limit is clamped, not rejected
	all, err := svc.List(context.Background(), "d-1", RecipientDoctor, 100000, -5)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	other, err := svc.List(context.Background(), "d-1", RecipientPatient, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, other, "recipient type is part of the key")
}

func TestMarkReadIsIdempotent(t *testing.T) {
	svc, repo := newTestService(30 * 24 * time.Hour)

	require.NoError(t, svc.Process(context.Background(), createdEnvelope()))

	var id uuid.UUID
	for nid := range repo.rows {
		id = nid
	}

	require.NoError(t, svc.MarkRead(context.Background(), id))
	require.NoError(t, svc.MarkRead(context.Background(), id), "second mark-read is a no-op success")

	items, err := svc.List(context.Background(), "d-1", RecipientDoctor, 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Read)

	err = svc.MarkRead(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestUnreadCount(t *testing.T) {
	svc, repo := newTestService(30 * 24 * time.Hour)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Process(context.Background(), createdEnvelope()))
	}

	count, err := svc.UnreadCount(context.Background(), "d-1", RecipientDoctor)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	var id uuid.UUID
	for nid := range repo.rows {
		id = nid
		break
	}
	require.NoError(t, svc.MarkRead(context.Background(), id))

	count, err = svc.UnreadCount(context.Background(), "d-1", RecipientDoctor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = svc.UnreadCount(context.Background(), "nobody", RecipientDoctor)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestSweepDeletesOnlyReadAndOld(t *testing.T) {
	svc, repo := newTestService(30 * 24 * time.Hour)

	old := time.Now().Add(-40 * 24 * time.Hour)
	recent := time.Now().Add(-1 * 24 * time.Hour)

	oldRead := insertAt(repo, old, true)
	insertAt(repo, old, false)    // old but unread, must survive
	insertAt(repo, recent, true)  // read but recent, must survive
	insertAt(repo, recent, false) // recent unread, must survive

	deleted, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, stillThere := repo.rows[oldRead]
	assert.False(t, stillThere)
	assert.Len(t, repo.rows, 3)
}

func TestSweepIsIdempotent(t *testing.T) {
	svc, repo := newTestService(30 * 24 * time.Hour)

	insertAt(repo, time.Now().Add(-60*24*time.Hour), true)

	deleted, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func insertAt(repo *MemoryRepository, createdAt time.Time, read bool) uuid.UUID {
	n, err := repo.Insert(context.Background(), Notification{
		EventType:     "appointment.created",
		Message:       "m",
		RecipientType: RecipientDoctor,
		RecipientID:   "d-1",
	})
	if err != nil {
		panic(err)
	}

	repo.mu.Lock()
	repo.rows[n.ID].CreatedAt = createdAt
	repo.rows[n.ID].Read = read
	repo.mu.Unlock()

	return n.ID
}
