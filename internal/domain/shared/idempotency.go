package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which event ids a session already applied.
// Redelivered frames carry the same content-derived id, so the second
// MarkProcessed for it reports false.
type IdempotencyStore interface {
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	Close() error
}

// IdempotencyConfig controls frame deduplication. TTL should outlive the
// longest redelivery window of the event source.
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig keeps ids for ten minutes.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{TTL: 10 * time.Minute, Enabled: true}
}
