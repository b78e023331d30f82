package auth

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocationList(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l := NewMemoryRevocationList()
	l.now = func() time.Time { return now }

	require.NoError(t, l.Revoke(ctx, "jti-1", time.Minute))
	require.NoError(t, l.Revoke(ctx, "jti-expired", 0))

	revoked, err := l.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, _ = l.IsRevoked(ctx, "jti-expired")
	assert.False(t, revoked, "already expired tokens are not stored")

	now = now.Add(2 * time.Minute)
	revoked, _ = l.IsRevoked(ctx, "jti-1")
	assert.False(t, revoked)
	assert.Empty(t, l.entries)
}

func TestRedisRevocationList_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	l := NewRedisRevocationList(client)

	assert.Error(t, l.Revoke(context.Background(), "jti", time.Minute))
	_, err := l.IsRevoked(context.Background(), "jti")
	assert.Error(t, err)
	assert.NoError(t, l.Revoke(context.Background(), "jti", 0))
}
