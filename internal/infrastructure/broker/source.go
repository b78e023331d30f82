// Package broker is the RabbitMQ transport of the realtime feed. The order
// service publishes every frame to a topic exchange with the room as the
// routing key; each session binds a private queue to its rooms.
package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/bakery/orderdesk/internal/application/realtime"
	"github.com/bakery/orderdesk/internal/infrastructure/config"
)

const prefetch = 32

// Channel is the subset of *amqp.Channel the source uses
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	ConsumeWithContext(ctx context.Context, queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	Close() error
}

// Conn is one broker connection
type Conn interface {
	Channel() (Channel, error)
	Close() error
}

// DialFunc opens a connection
type DialFunc func(url string) (Conn, error)

type amqpConn struct{ *amqp.Connection }

func (c amqpConn) Channel() (Channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

var _ Channel = (*amqp.Channel)(nil)

// Dial connects with amqp.Dial
func Dial(url string) (Conn, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return amqpConn{conn}, nil
}

// Source consumes realtime frames from RabbitMQ
type Source struct {
	url        string
	exchange   string
	dial       DialFunc
	minWait    time.Duration
	maxWait    time.Duration
	maxElapsed time.Duration
	logger     *zap.Logger
}

// NewSource builds a broker source. dial may be nil to use Dial.
func NewSource(cfg config.RealtimeConfig, dial DialFunc, logger *zap.Logger) *Source {
	if dial == nil {
		dial = Dial
	}
	return &Source{
		url:        cfg.AMQPURL,
		exchange:   cfg.Exchange,
		dial:       dial,
		minWait:    cfg.ReconnectMin,
		maxWait:    cfg.ReconnectMax,
		maxElapsed: cfg.ReconnectMaxElapsed,
		logger:     logger.Named("broker"),
	}
}

func (s *Source) Name() string { return config.TransportAMQP }

func (s *Source) newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.minWait
	b.MaxInterval = s.maxWait
	b.MaxElapsedTime = s.maxElapsed
	b.Reset()
	return b
}

// Run binds the subscription's rooms and consumes until ctx is done
func (s *Source) Run(ctx context.Context, sub realtime.Subscription, sink realtime.Sink) error {
	if len(sub.Rooms) == 0 {
		return errors.New("broker: subscription has no rooms")
	}
	log := s.logger.With(zap.String("user_id", sub.UserID))
	policy := s.newBackoff()

	for {
		connected, err := s.session(ctx, sub, sink)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			policy.Reset()
		}
		sink.Disconnected(ctx, err)

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("broker: giving up after %s: %w", s.maxElapsed, err)
		}
		log.Warn("Broker disconnected, retrying", zap.Error(err), zap.Duration("wait", wait))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *Source) session(ctx context.Context, sub realtime.Subscription, sink realtime.Sink) (bool, error) {
	conn, err := s.dial(s.url)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return false, fmt.Errorf("channel: %w", err)
	}
	defer ch.Close()
	closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	deliveries, err := s.subscribe(ctx, ch, sub)
	if err != nil {
		return false, err
	}
	sink.Connected(ctx)

	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case amqpErr, ok := <-closed:
			if !ok || amqpErr == nil {
				return true, errors.New("channel closed")
			}
			return true, fmt.Errorf("channel closed: %w", amqpErr)
		case d, ok := <-deliveries:
			if !ok {
				return true, errors.New("delivery stream closed")
			}
			sink.Deliver(ctx, d.Body)
			if err := d.Ack(false); err != nil {
				return true, fmt.Errorf("ack: %w", err)
			}
		}
	}
}

// subscribe declares the exchange and a server-named exclusive queue bound
// to every room.
func (s *Source) subscribe(ctx context.Context, ch Channel, sub realtime.Subscription) (<-chan amqp.Delivery, error) {
	if err := ch.ExchangeDeclare(s.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", s.exchange, err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	for _, room := range sub.Rooms {
		if err := ch.QueueBind(q.Name, room, s.exchange, false, nil); err != nil {
			return nil, fmt.Errorf("bind %s: %w", room, err)
		}
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("qos: %w", err)
	}
	deliveries, err := ch.ConsumeWithContext(ctx, q.Name, "orderdesk-"+sub.UserID, false, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return deliveries, nil
}

var _ realtime.Source = (*Source)(nil)
