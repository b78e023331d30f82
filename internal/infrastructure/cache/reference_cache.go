package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	referenceKeyPrefix   = "orderdesk:ref:"
	defaultReferenceTTL  = 10 * time.Minute
	defaultLocalTTL      = time.Minute
	defaultScanBatchSize = 100
)

// ReferenceSource serves the lookups used by assignment forms
type ReferenceSource interface {
	ListChefs(ctx context.Context, token, departmentID string) ([]order.Chef, error)
	ListBranches(ctx context.Context, token string) ([]order.Branch, error)
	ListDepartments(ctx context.Context, token string) ([]order.Department, error)
}

// ReferenceCache is a two-tier read-through cache in front of the order
// API's reference endpoints.
// L1: process memory, short TTL. L2: Redis, shared across replicas.
// Entries are keyed by lookup only; reference lists do not vary by caller.
type ReferenceCache struct {
	source   ReferenceSource
	client   *redis.Client
	local    *localCache
	ttl      time.Duration
	localTTL time.Duration
	logger   *zap.Logger
	notifier *ReferenceInvalidator

	localHits  atomic.Int64
	remoteHits atomic.Int64
	misses     atomic.Int64
}

// ReferenceCacheOption configures a ReferenceCache
type ReferenceCacheOption func(*ReferenceCache)

// WithReferenceTTL sets the Redis entry lifetime
func WithReferenceTTL(ttl time.Duration) ReferenceCacheOption {
	return func(c *ReferenceCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLocalTTL sets the in-process entry lifetime
func WithLocalTTL(ttl time.Duration) ReferenceCacheOption {
	return func(c *ReferenceCache) {
		if ttl > 0 {
			c.localTTL = ttl
		}
	}
}

// WithReferenceLogger sets the logger
func WithReferenceLogger(logger *zap.Logger) ReferenceCacheOption {
	return func(c *ReferenceCache) { c.logger = logger }
}

// WithInvalidator broadcasts Invalidate to other replicas
func WithInvalidator(n *ReferenceInvalidator) ReferenceCacheOption {
	return func(c *ReferenceCache) { c.notifier = n }
}

// WithReferenceClock overrides the L1 time source
func WithReferenceClock(now func() time.Time) ReferenceCacheOption {
	return func(c *ReferenceCache) { c.local.now = now }
}

// NewReferenceCache creates a cache. A nil client keeps only the L1 tier.
func NewReferenceCache(source ReferenceSource, client *redis.Client, opts ...ReferenceCacheOption) *ReferenceCache {
	c := &ReferenceCache{
		source:   source,
		client:   client,
		local:    newLocalCache(),
		ttl:      defaultReferenceTTL,
		localTTL: defaultLocalTTL,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.localTTL > c.ttl {
		c.localTTL = c.ttl
	}
	return c
}

// ListChefs returns the chefs of a department, or all chefs when empty
func (c *ReferenceCache) ListChefs(ctx context.Context, token, departmentID string) ([]order.Chef, error) {
	key := "chefs:all"
	if departmentID != "" {
		key = "chefs:" + departmentID
	}
	return readThrough(ctx, c, key, func() ([]order.Chef, error) {
		return c.source.ListChefs(ctx, token, departmentID)
	})
}

// ListBranches returns all branches
func (c *ReferenceCache) ListBranches(ctx context.Context, token string) ([]order.Branch, error) {
	return readThrough(ctx, c, "branches", func() ([]order.Branch, error) {
		return c.source.ListBranches(ctx, token)
	})
}

// ListDepartments returns all departments
func (c *ReferenceCache) ListDepartments(ctx context.Context, token string) ([]order.Department, error) {
	return readThrough(ctx, c, "departments", func() ([]order.Department, error) {
		return c.source.ListDepartments(ctx, token)
	})
}

// Invalidate drops every cached lookup here and, through the invalidator,
// the L1 tier of the other replicas
func (c *ReferenceCache) Invalidate(ctx context.Context) error {
	c.local.clear()

	if c.client != nil {
		var cursor uint64
		for {
			keys, next, err := c.client.Scan(ctx, cursor, referenceKeyPrefix+"*", defaultScanBatchSize).Result()
			if err != nil {
				return fmt.Errorf("failed to scan reference keys: %w", err)
			}
			if len(keys) > 0 {
				if err := c.client.Del(ctx, keys...).Err(); err != nil {
					return fmt.Errorf("failed to delete reference keys: %w", err)
				}
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}

	if c.notifier != nil {
		if err := c.notifier.Publish(ctx); err != nil {
			c.logger.Warn("Failed to broadcast reference invalidation", zap.Error(err))
		}
	}
	return nil
}

// DropLocal clears the L1 tier only. The invalidator calls it when another
// replica invalidated.
func (c *ReferenceCache) DropLocal() {
	c.local.clear()
}

// ReferenceCacheStats reports hit counters
type ReferenceCacheStats struct {
	LocalHits  int64 `json:"local_hits"`
	RemoteHits int64 `json:"remote_hits"`
	Misses     int64 `json:"misses"`
}

// Stats returns a snapshot of the hit counters
func (c *ReferenceCache) Stats() ReferenceCacheStats {
	return ReferenceCacheStats{
		LocalHits:  c.localHits.Load(),
		RemoteHits: c.remoteHits.Load(),
		Misses:     c.misses.Load(),
	}
}

// readThrough checks L1, then L2, then loads from the source and fills both.
// Cache failures degrade to a source read; source failures are returned.
func readThrough[T any](ctx context.Context, c *ReferenceCache, key string, load func() ([]T, error)) ([]T, error) {
	if raw, ok := c.local.get(key); ok {
		var out []T
		if err := json.Unmarshal(raw, &out); err == nil {
			c.localHits.Add(1)
			return out, nil
		}
	}

	fullKey := referenceKeyPrefix + key
	if c.client != nil {
		raw, err := c.client.Get(ctx, fullKey).Bytes()
		switch {
		case err == nil:
			var out []T
			if err := json.Unmarshal(raw, &out); err == nil {
				c.remoteHits.Add(1)
				c.local.set(key, raw, c.localTTL)
				return out, nil
			}
			c.logger.Warn("Discarding undecodable reference entry", zap.String("key", fullKey))
		case errors.Is(err, redis.Nil):
		default:
			c.logger.Warn("Reference cache read failed", zap.String("key", fullKey), zap.Error(err))
		}
	}

	c.misses.Add(1)
	out, err := load()
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return out, nil
	}
	c.local.set(key, raw, c.localTTL)
	if c.client != nil {
		if err := c.client.Set(ctx, fullKey, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("Reference cache write failed", zap.String("key", fullKey), zap.Error(err))
		}
	}
	return out, nil
}

// localCache holds encoded entries so callers never share slices
type localCache struct {
	mu      sync.RWMutex
	entries map[string]localEntry
	now     func() time.Time
}

type localEntry struct {
	raw       []byte
	expiresAt time.Time
}

func newLocalCache() *localCache {
	return &localCache{entries: make(map[string]localEntry), now: time.Now}
}

func (l *localCache) get(key string) ([]byte, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[key]
	if !ok || !l.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.raw, true
}

func (l *localCache) set(key string, raw []byte, ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = localEntry{raw: raw, expiresAt: l.now().Add(ttl)}
}

func (l *localCache) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]localEntry)
}
