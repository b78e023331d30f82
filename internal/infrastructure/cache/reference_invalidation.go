package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultInvalidationChannel carries reference cache invalidations
	DefaultInvalidationChannel = "orderdesk:ref:invalidate"
	defaultCloseTimeout        = 5 * time.Second
)

type invalidationMessage struct {
	Origin    string `json:"origin"`
	Timestamp int64  `json:"timestamp"`
}

// ReferenceInvalidator fans reference cache invalidations out to every
// replica over Redis Pub/Sub
type ReferenceInvalidator struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *zap.Logger

	mu        sync.Mutex
	cancelFn  context.CancelFunc
	doneCh    chan struct{}
	doneOnce  sync.Once
	isRunning bool
}

// InvalidatorOption configures a ReferenceInvalidator
type InvalidatorOption func(*ReferenceInvalidator)

// WithInvalidatorChannel sets the Pub/Sub channel name
func WithInvalidatorChannel(channel string) InvalidatorOption {
	return func(i *ReferenceInvalidator) { i.channel = channel }
}

// WithInvalidatorLogger sets the logger
func WithInvalidatorLogger(logger *zap.Logger) InvalidatorOption {
	return func(i *ReferenceInvalidator) { i.logger = logger }
}

// NewReferenceInvalidator creates an invalidator on a shared client
func NewReferenceInvalidator(client *redis.Client, opts ...InvalidatorOption) *ReferenceInvalidator {
	host, _ := os.Hostname()
	i := &ReferenceInvalidator{
		client:  client,
		channel: DefaultInvalidationChannel,
		origin:  fmt.Sprintf("%s-%d", host, os.Getpid()),
		logger:  zap.NewNop(),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Publish announces an invalidation
func (i *ReferenceInvalidator) Publish(ctx context.Context) error {
	data, err := json.Marshal(invalidationMessage{Origin: i.origin, Timestamp: time.Now().UnixNano()})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Subscribe calls drop for every invalidation published by another replica.
// It blocks until ctx ends or Close is called.
func (i *ReferenceInvalidator) Subscribe(ctx context.Context, drop func()) error {
	i.mu.Lock()
	if i.isRunning {
		i.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	i.isRunning = true
	subCtx, cancel := context.WithCancel(ctx)
	i.cancelFn = cancel
	i.mu.Unlock()

	defer func() {
		i.mu.Lock()
		i.isRunning = false
		i.mu.Unlock()
		i.doneOnce.Do(func() { close(i.doneCh) })
	}()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}
	i.logger.Info("Subscribed to reference invalidation channel", zap.String("channel", i.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("Reference invalidation channel closed")
				return nil
			}
			var m invalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				i.logger.Error("Failed to unmarshal invalidation message",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}
			if m.Origin == i.origin {
				continue
			}
			drop()
		}
	}
}

// Close stops a running subscription
func (i *ReferenceInvalidator) Close() error {
	i.mu.Lock()
	cancelFn := i.cancelFn
	i.mu.Unlock()

	if cancelFn == nil {
		return nil
	}
	cancelFn()
	select {
	case <-i.doneCh:
	case <-time.After(defaultCloseTimeout):
		i.logger.Warn("Timeout waiting for subscription to stop")
	}
	return nil
}
