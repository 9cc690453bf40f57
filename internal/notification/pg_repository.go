package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const notificationColumns = `id, event_type, message, recipient_type, recipient_id,
	payload, read, envelope_ts, created_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	var payload []byte
	var envelopeTS *string

	err := row.Scan(
		&n.ID,
		&n.EventType,
		&n.Message,
		&n.RecipientType,
		&n.RecipientID,
		&payload,
		&n.Read,
		&envelopeTS,
		&n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}

	n.Payload = payload
	if envelopeTS != nil {
		n.EnvelopeTS = *envelopeTS
	}
	return &n, nil
}

func (r *PgRepository) Insert(ctx context.Context, n Notification) (*Notification, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, event_type, message, recipient_type, recipient_id,
			payload, read, envelope_ts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7, now())
		RETURNING `+notificationColumns+`
	`, id, n.EventType, n.Message, n.RecipientType, n.RecipientID, n.Payload, nullableString(n.EnvelopeTS))

	return scanNotification(row)
}

func (r *PgRepository) ListByRecipient(ctx context.Context, recipientID string, recipientType RecipientType, limit, skip int) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE recipient_id = $1
		  AND recipient_type = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, recipientID, recipientType, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) MarkRead(ctx context.Context, id uuid.UUID) (*Notification, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE notifications
		SET read = true
		WHERE id = $1
		RETURNING `+notificationColumns+`
	`, id)

	return scanNotification(row)
}

func (r *PgRepository) CountUnread(ctx context.Context, recipientID string, recipientType RecipientType) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM notifications
		WHERE recipient_id = $1
		  AND recipient_type = $2
		  AND read = false
	`, recipientID, recipientType).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PgRepository) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE read = true
		  AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
