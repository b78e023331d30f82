package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	clock := newFakeClock()
	store := NewInMemoryIdempotencyStore(WithStoreClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	t.Run("marks new event as processed", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "u1:evt-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("returns false for already processed event", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "u1:evt-2", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "u1:evt-2", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("allows reprocessing after expiration", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "u1:evt-3", time.Minute)
		require.NoError(t, err)

		clock.Advance(time.Minute)

		isNew, err := store.MarkProcessed(ctx, "u1:evt-3", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	clock := newFakeClock()
	store := NewInMemoryIdempotencyStore(WithStoreClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "evt-unknown")
	require.NoError(t, err)
	assert.False(t, processed)

	_, _ = store.MarkProcessed(ctx, "evt-1", time.Minute)
	processed, _ = store.IsProcessed(ctx, "evt-1")
	assert.True(t, processed)

	clock.Advance(2 * time.Minute)
	processed, _ = store.IsProcessed(ctx, "evt-1")
	assert.False(t, processed)
}

func TestInMemoryIdempotencyStore_Sweep(t *testing.T) {
	clock := newFakeClock()
	store := NewInMemoryIdempotencyStore(WithStoreClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	_, _ = store.MarkProcessed(ctx, "short", time.Minute)
	_, _ = store.MarkProcessed(ctx, "long", time.Hour)
	assert.Equal(t, 2, store.Size())

	clock.Advance(10 * time.Minute)
	store.sweep()

	assert.Equal(t, 1, store.Size())
	processed, _ := store.IsProcessed(ctx, "long")
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	var fresh atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			isNew, err := store.MarkProcessed(ctx, fmt.Sprintf("evt-%d", i%10), time.Hour)
			if err == nil && isNew {
				fresh.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(10), fresh.Load())
	assert.Equal(t, 10, store.Size())
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
