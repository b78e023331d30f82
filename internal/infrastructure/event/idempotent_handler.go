package event

import (
	"context"
	"sync/atomic"

	"github.com/bakery/orderdesk/internal/domain/shared"
	"go.uber.org/zap"
)

// DedupeCounters counts what the dedupe wrappers did with incoming frames.
// One instance may be shared by all sessions of a feed.
type DedupeCounters struct {
	Applied     atomic.Int64
	Redelivered atomic.Int64
	Failed      atomic.Int64
}

// Stats copies the counters.
func (c *DedupeCounters) Stats() DedupeStats {
	return DedupeStats{
		Applied:     c.Applied.Load(),
		Redelivered: c.Redelivered.Load(),
		Failed:      c.Failed.Load(),
	}
}

// DedupeStats is a point-in-time copy of DedupeCounters.
type DedupeStats struct {
	Applied     int64 `json:"applied"`
	Redelivered int64 `json:"redelivered"`
	Failed      int64 `json:"failed"`
}

// DuplicateObserver is called for each frame dropped as a redelivery.
type DuplicateObserver func(ctx context.Context, event shared.DomainEvent)

// IdempotentHandler lets a session apply each event id at most once within
// the configured TTL. The socket source replays frames after a reconnect
// and the broker redelivers on nack, both with unchanged ids.
type IdempotentHandler struct {
	next        shared.EventHandler
	store       shared.IdempotencyStore
	cfg         shared.IdempotencyConfig
	logger      *zap.Logger
	counters    *DedupeCounters
	keyPrefix   string
	onDuplicate DuplicateObserver
}

// IdempotentHandlerOption configures an IdempotentHandler.
type IdempotentHandlerOption func(*IdempotentHandler)

func WithIdempotencyConfig(cfg shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.cfg = cfg }
}

func WithDedupeCounters(c *DedupeCounters) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.counters = c }
}

// WithKeyPrefix namespaces stored ids, normally by user id, so sessions on
// a shared Redis see their own history only.
func WithKeyPrefix(prefix string) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.keyPrefix = prefix }
}

func WithDuplicateObserver(fn DuplicateObserver) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.onDuplicate = fn }
}

// NewIdempotentHandler wraps next with dedupe backed by store.
func NewIdempotentHandler(next shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		next:     next,
		store:    store,
		cfg:      shared.DefaultIdempotencyConfig(),
		logger:   logger,
		counters: &DedupeCounters{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.next.EventTypes()
}

// Handle forwards event unless its id was already marked. A failing store
// lets the frame through: order mutations are keyed by order id, so a
// double apply converges.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.cfg.Enabled || event.EventID() == "" {
		return h.next.Handle(ctx, event)
	}

	fresh, err := h.store.MarkProcessed(ctx, h.keyPrefix+event.EventID(), h.cfg.TTL)
	switch {
	case err != nil:
		h.logger.Warn("Dedupe store unavailable, applying frame",
			zap.String("event_id", event.EventID()),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	case !fresh:
		h.counters.Redelivered.Add(1)
		h.logger.Debug("Redelivered frame dropped",
			zap.String("event_id", event.EventID()),
			zap.String("event_type", event.EventType()),
			zap.String("order_id", event.AggregateID()),
		)
		if h.onDuplicate != nil {
			h.onDuplicate(ctx, event)
		}
		return nil
	}

	// A failed frame keeps its mark; the source's replay after TTL retries it.
	if err := h.next.Handle(ctx, event); err != nil {
		h.counters.Failed.Add(1)
		return err
	}
	h.counters.Applied.Add(1)
	return nil
}

// Counters returns the counters this wrapper writes to.
func (h *IdempotentHandler) Counters() *DedupeCounters {
	return h.counters
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
