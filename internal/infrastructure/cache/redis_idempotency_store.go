package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bakery/orderdesk/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// DefaultSeenKeyPrefix namespaces applied frame ids in Redis.
const DefaultSeenKeyPrefix = "orderdesk:seen:"

// RedisIdempotencyStore keeps applied frame ids in Redis so every replica
// serving a user skips the same redeliveries. Values hold the unix time of
// the first apply, which helps when tracing a stuck frame with redis-cli.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// NewRedisIdempotencyStore borrows client; Close leaves it open.
func NewRedisIdempotencyStore(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = DefaultSeenKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix, now: time.Now}
}

// MarkProcessed sets the key only if absent. redis.Nil from SET NX means the
// frame was seen before.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	err := s.client.SetArgs(ctx, s.keyPrefix+eventID, s.now().Unix(), redis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("mark frame %s: %w", eventID, err)
	}
}

func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("lookup frame %s: %w", eventID, err)
	}
	return n == 1, nil
}

func (s *RedisIdempotencyStore) Close() error { return nil }

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
