package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CountCache caches per-recipient unread counts. The unread-count endpoint
// is the hot path (clients poll it), so a short TTL plus invalidation on
// ingest and mark-read keeps it off Postgres. Cache failures degrade to a
// direct count, never to an error.
type CountCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCountCache(client *redis.Client, ttl time.Duration) *CountCache {
	return &CountCache{client: client, ttl: ttl}
}

func countKey(recipientID string, recipientType RecipientType) string {
	return fmt.Sprintf("unread:%s:%s", recipientType, recipientID)
}

func (c *CountCache) Get(ctx context.Context, recipientID string, recipientType RecipientType) (int64, bool, error) {
	n, err := c.client.Get(ctx, countKey(recipientID, recipientType)).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, false, nil
		}
		return 0, false, err
	}
	return n, true, nil
}

func (c *CountCache) Set(ctx context.Context, recipientID string, recipientType RecipientType, count int64) error {
	return c.client.Set(ctx, countKey(recipientID, recipientType), count, c.ttl).Err()
}

func (c *CountCache) Invalidate(ctx context.Context, recipientID string, recipientType RecipientType) error {
	return c.client.Del(ctx, countKey(recipientID, recipientType)).Err()
}
