package cache

import (
	"context"
	"fmt"

	"github.com/bakery/orderdesk/internal/domain/shared"
	"github.com/bakery/orderdesk/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory builds the Redis-backed caches, falling back to in-memory
// variants when Redis is disabled or unreachable
type Factory struct {
	cfg                   config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	dial                  func(context.Context, config.RedisConfig) (*redis.Client, error)

	client      *redis.Client
	invalidator *ReferenceInvalidator
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis is an error.
// Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:                   cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		dial:                  NewRedisClient,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Connect dials Redis once. A nil client with a nil error means the
// in-memory variants are in use.
func (f *Factory) Connect(ctx context.Context) (*redis.Client, error) {
	if f.client != nil || !f.cfg.Enabled {
		return f.client, nil
	}

	client, err := f.dial(ctx, f.cfg)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory caches. "+
			"Replicas will not share dedupe state.",
			zap.String("addr", f.cfg.Addr()),
			zap.Error(err))
		return nil, nil
	}

	f.logger.Info("Connected to Redis", zap.String("addr", f.cfg.Addr()))
	f.client = client
	return client, nil
}

// IdempotencyStore returns the event dedupe store
func (f *Factory) IdempotencyStore(ctx context.Context) (shared.IdempotencyStore, error) {
	client, err := f.Connect(ctx)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return NewInMemoryIdempotencyStore(), nil
	}
	return NewRedisIdempotencyStore(client, DefaultSeenKeyPrefix), nil
}

// ReferenceCache wraps source with a read-through cache. With Redis the
// cache also broadcasts invalidations to the other replicas.
func (f *Factory) ReferenceCache(ctx context.Context, source ReferenceSource) (*ReferenceCache, error) {
	client, err := f.Connect(ctx)
	if err != nil {
		return nil, err
	}
	opts := []ReferenceCacheOption{
		WithReferenceTTL(f.cfg.ReferenceTTL),
		WithReferenceLogger(f.logger),
	}
	if client != nil {
		f.invalidator = NewReferenceInvalidator(client, WithInvalidatorLogger(f.logger))
		opts = append(opts, WithInvalidator(f.invalidator))
	}
	return NewReferenceCache(source, client, opts...), nil
}

// Invalidator returns the invalidator created by ReferenceCache, nil
// without Redis
func (f *Factory) Invalidator() *ReferenceInvalidator {
	return f.invalidator
}

// Close releases the shared client
func (f *Factory) Close() error {
	if f.invalidator != nil {
		_ = f.invalidator.Close()
		f.invalidator = nil
	}
	if f.client == nil {
		return nil
	}
	err := f.client.Close()
	f.client = nil
	return err
}
