package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/bakery/orderdesk/internal/application/dashboard"
	"github.com/bakery/orderdesk/internal/domain/order"
	events "github.com/bakery/orderdesk/internal/domain/realtime"
	"github.com/bakery/orderdesk/internal/domain/shared"
	"github.com/bakery/orderdesk/internal/infrastructure/event"
	"go.uber.org/zap"
)

// Subscription is the scope a session listens to
type Subscription struct {
	UserID string
	Join   events.JoinRoom
	Rooms  []string
	// Token returns the current bearer token; read again on every reconnect
	Token func() string
}

// Sink receives what a Source reads. A Source calls it from one goroutine.
type Sink interface {
	Deliver(ctx context.Context, raw []byte)
	Connected(ctx context.Context)
	Disconnected(ctx context.Context, err error)
}

// Source is an event transport. Run keeps one subscription alive,
// reconnecting as needed, until ctx is done.
type Source interface {
	Name() string
	Run(ctx context.Context, sub Subscription, sink Sink) error
}

// Feed attaches sessions to a Source. Each session gets its own bus, so
// one session's slow handler never delays another's.
type Feed struct {
	source  Source
	dedupe  shared.IdempotencyStore
	dedupeC shared.IdempotencyConfig
	stats   *event.DedupeCounters
	metrics Metrics
	logger  *zap.Logger
	reload  time.Duration
}

// FeedOption configures a Feed
type FeedOption func(*Feed)

// WithDedupe drops redelivered frames using store
func WithDedupe(store shared.IdempotencyStore, ttl time.Duration) FeedOption {
	return func(f *Feed) {
		f.dedupe = store
		if ttl > 0 {
			f.dedupeC.TTL = ttl
		}
	}
}

// WithFeedMetrics sets the metrics sink
func WithFeedMetrics(m Metrics) FeedOption {
	return func(f *Feed) { f.metrics = m }
}

// WithReloadTimeout bounds the full reload after a reconnect
func WithReloadTimeout(d time.Duration) FeedOption {
	return func(f *Feed) { f.reload = d }
}

// NewFeed creates a feed over source
func NewFeed(source Source, logger *zap.Logger, opts ...FeedOption) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Feed{
		source:  source,
		dedupeC: shared.DefaultIdempotencyConfig(),
		stats:   &event.DedupeCounters{},
		metrics: noopMetrics{},
		logger:  logger,
		reload:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DedupeStats returns the counters shared by every session's dedupe wrapper
func (f *Feed) DedupeStats() event.DedupeStats {
	return f.stats.Stats()
}

// SubscriptionFor builds the join payload and rooms of a user
func SubscriptionFor(u dashboard.User) Subscription {
	actor := u.Actor()
	return Subscription{
		UserID: u.ID,
		Join:   events.NewJoinRoom(actor),
		Rooms:  events.RoomsFor(actor),
	}
}

// Start runs the source for sess until stop is called or ctx ends
func (f *Feed) Start(ctx context.Context, sess *dashboard.Session) (func(), error) {
	logger := f.logger.With(
		zap.String("user_id", sess.User.ID),
		zap.String("transport", f.source.Name()))

	bus := event.NewInMemoryEventBus(logger)
	rec := NewReconciler(sess, logger, f.metrics)

	var handler shared.EventHandler = rec
	if f.dedupe != nil {
		handler = event.NewIdempotentHandler(rec, f.dedupe, logger,
			event.WithKeyPrefix(sess.User.ID+":"),
			event.WithIdempotencyConfig(f.dedupeC),
			event.WithDedupeCounters(f.stats),
			event.WithDuplicateObserver(func(ctx context.Context, e shared.DomainEvent) {
				f.metrics.EventReceived(ctx, e.EventType(), OutcomeDuplicate)
			}))
	}
	bus.Subscribe(handler)
	if err := bus.Start(ctx); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	conn := &connection{
		sess:      sess,
		bus:       bus,
		metrics:   f.metrics,
		logger:    logger,
		transport: f.source.Name(),
		reload:    f.reload,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		rec.RunRefetcher(runCtx)
	}()
	go func() {
		defer wg.Done()
		sub := SubscriptionFor(sess.User)
		sub.Token = sess.Token
		err := f.source.Run(runCtx, sub, conn)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Realtime source stopped", zap.Error(err))
		}
	}()

	logger.Info("Realtime feed started")

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			wg.Wait()
			_ = bus.Stop(context.Background())
			logger.Info("Realtime feed stopped")
		})
	}
	return stop, nil
}

// connection tracks the link state of one session's source
type connection struct {
	sess      *dashboard.Session
	bus       *event.InMemoryEventBus
	metrics   Metrics
	logger    *zap.Logger
	transport string
	reload    time.Duration

	everConnected bool
	down          bool
}

func (c *connection) Deliver(ctx context.Context, raw []byte) {
	ev, err := events.DecodeFrame(raw)
	if err != nil {
		c.metrics.EventReceived(ctx, frameName(raw), OutcomeInvalid)
		c.logger.Warn("Dropping invalid frame", zap.Error(err), zap.Int("bytes", len(raw)))
		return
	}
	if err := c.bus.Publish(ctx, ev); err != nil {
		c.logger.Warn("Event handling failed",
			zap.String("event", string(ev.Name())),
			zap.Error(err))
	}
}

// Connected is called after every successful (re)connect and room join.
// After an outage the whole list is reloaded, since events may have been missed.
func (c *connection) Connected(ctx context.Context) {
	c.sess.Store.Dispatch(dashboard.SetSocketConnected{Connected: true})
	wasDown := c.down
	reconnect := c.everConnected
	c.everConnected = true
	c.down = false

	if !reconnect {
		return
	}
	c.metrics.SourceReconnected(ctx, c.transport)
	if wasDown {
		c.sess.Notify(dashboard.NewToast(dashboard.ToastSuccess, order.NoticeSocketReconnected, c.sess.Locale(), ""))
	}

	rctx, cancel := context.WithTimeout(ctx, c.reload)
	defer cancel()
	if err := c.sess.Reload(rctx); err != nil {
		c.logger.Warn("Reload after reconnect failed", zap.Error(err))
	}
}

// Disconnected is called on every failed connect attempt and dropped link.
// Only the first one of an outage is surfaced.
func (c *connection) Disconnected(ctx context.Context, err error) {
	if c.down {
		return
	}
	c.down = true
	c.sess.Store.Dispatch(dashboard.SetSocketConnected{Connected: false})
	c.sess.Notify(dashboard.NewToast(dashboard.ToastWarning, order.NoticeSocketDisconnected, c.sess.Locale(), ""))
	c.logger.Warn("Realtime link down", zap.Error(err))
}

// frameName extracts the event name of an undecodable frame for metrics
func frameName(raw []byte) string {
	var f events.Frame
	if err := json.Unmarshal(raw, &f); err != nil || !events.IsInbound(f.Event) {
		return "unknown"
	}
	return string(f.Event)
}

var _ dashboard.Feed = (*Feed)(nil)
