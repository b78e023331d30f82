// Package socket is the websocket transport of the realtime feed. It keeps
// one connection per session, joins the user's rooms after every connect
// and reconnects with exponential backoff.
package socket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/bakery/orderdesk/internal/application/realtime"
	events "github.com/bakery/orderdesk/internal/domain/realtime"
	"github.com/bakery/orderdesk/internal/infrastructure/config"
)

const writeTimeout = 5 * time.Second

// Source dials the order service's websocket endpoint.
type Source struct {
	url         string
	readTimeout time.Duration
	minWait     time.Duration
	maxWait     time.Duration
	maxElapsed  time.Duration
	logger      *zap.Logger
}

// NewSource builds a source from the realtime config. The server pings
// every connection, so a read timeout longer than its ping interval
// detects dead links.
func NewSource(cfg config.RealtimeConfig, logger *zap.Logger) *Source {
	return &Source{
		url:         cfg.SocketURL,
		readTimeout: cfg.ReadTimeout,
		minWait:     cfg.ReconnectMin,
		maxWait:     cfg.ReconnectMax,
		maxElapsed:  cfg.ReconnectMaxElapsed,
		logger:      logger.Named("socket"),
	}
}

func (s *Source) Name() string { return config.TransportSocket }

func (s *Source) newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.minWait
	b.MaxInterval = s.maxWait
	b.MaxElapsedTime = s.maxElapsed
	b.Reset()
	return b
}

// Run connects, joins and reads until ctx is done. Connection failures are
// reported to the sink and retried; Run only returns an error when the
// reconnect budget (realtime.reconnect_max_elapsed) is exhausted.
func (s *Source) Run(ctx context.Context, sub realtime.Subscription, sink realtime.Sink) error {
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
			return fmt.Errorf("socket: giving up after %s: %w", s.maxElapsed, err)
		}
		log.Warn("Socket disconnected, retrying", zap.Error(err), zap.Duration("wait", wait))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// session runs one connection. connected reports whether the join frame
// was sent, which resets the backoff.
func (s *Source) session(ctx context.Context, sub realtime.Subscription, sink realtime.Sink) (connected bool, err error) {
	header := http.Header{}
	if sub.Token != nil {
		if token := sub.Token(); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}
	dialer := ws.Dialer{Header: ws.HandshakeHeaderHTTP(header), Timeout: writeTimeout}

	conn, br, _, err := dialer.Dial(ctx, s.url)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// frames sent right after the handshake may already sit in br
	var r io.Reader = conn
	if br != nil {
		r = io.MultiReader(br, conn)
		defer ws.PutReader(br)
	}
	rw := struct {
		io.Reader
		io.Writer
	}{r, conn}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	join, err := events.Encode(events.EventJoinRoom, sub.Join)
	if err != nil {
		return false, err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := wsutil.WriteClientText(conn, join); err != nil {
		return false, fmt.Errorf("join: %w", err)
	}
	sink.Connected(ctx)

	for {
		if s.readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		// pongs to server pings are written by the reader itself
		msg, op, err := wsutil.ReadServerData(rw)
		if err != nil {
			var closed wsutil.ClosedError
			if errors.As(err, &closed) {
				return true, fmt.Errorf("closed by server: %d %s", closed.Code, closed.Reason)
			}
			return true, fmt.Errorf("read: %w", err)
		}
		if op == ws.OpText || op == ws.OpBinary {
			sink.Deliver(ctx, msg)
		}
	}
}

var _ realtime.Source = (*Source)(nil)
