package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bakery/orderdesk/internal/application/dashboard"
	"github.com/bakery/orderdesk/internal/interfaces/http/dto"
)

// SSEMessage is one server-sent event
type SSEMessage struct {
	Event string
	ID    string
	Data  string
}

// connectedEvent is the first event of every stream
type connectedEvent struct {
	Version         uint64 `json:"version"`
	SocketConnected bool   `json:"socketConnected"`
	Orders          int    `json:"orders"`
}

// StreamHandler pushes a session's notifications to the browser over SSE
type StreamHandler struct {
	BaseHandler
	sessions   *dashboard.SessionManager
	logger     *zap.Logger
	heartbeat  time.Duration
	maxClients int64
	clients    atomic.Int64
	ctx        context.Context
	cancel     context.CancelFunc
	now        func() time.Time
}

// StreamOption configures a StreamHandler
type StreamOption func(*StreamHandler)

// WithStreamLogger sets the logger for the handler
func WithStreamLogger(logger *zap.Logger) StreamOption {
	return func(h *StreamHandler) {
		h.logger = logger
	}
}

// WithStreamHeartbeat sets the heartbeat interval
func WithStreamHeartbeat(interval time.Duration) StreamOption {
	return func(h *StreamHandler) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// WithStreamMaxClients caps concurrent streams across all sessions
func WithStreamMaxClients(max int) StreamOption {
	return func(h *StreamHandler) {
		h.maxClients = int64(max)
	}
}

// NewStreamHandler creates a StreamHandler
func NewStreamHandler(sessions *dashboard.SessionManager, opts ...StreamOption) *StreamHandler {
	ctx, cancel := context.WithCancel(context.Background())
	h := &StreamHandler{
		sessions:   sessions,
		logger:     zap.NewNop(),
		heartbeat:  30 * time.Second,
		maxClients: 10000,
		ctx:        ctx,
		cancel:     cancel,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Stop ends every open stream
func (h *StreamHandler) Stop() {
	h.cancel()
}

// ClientCount returns the number of open streams
func (h *StreamHandler) ClientCount() int {
	return int(h.clients.Load())
}

// Stream godoc
//
//	@ID				streamSession
//	@Summary		Subscribe to session updates via SSE
//	@Description	Emits state, toast and socket events for the caller's session plus periodic heartbeats. EventSource clients may pass the token as access_token.
//	@Tags			session
//	@Produce		text/event-stream
//	@Success		200	{string}	string	"SSE stream"
//	@Failure		401	{object}	ErrorEnvelope
//	@Failure		503	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	if n := h.clients.Add(1); h.maxClients > 0 && n > h.maxClients {
		h.clients.Add(-1)
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeStreamLimit, "Maximum number of streams reached")
		return
	}
	defer h.clients.Add(-1)

	sess, err := openSession(c, h.sessions)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	notifications, unsubscribe := sess.Hub.Subscribe()
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	log := h.logger.With(zap.String("user_id", sess.User.ID))
	log.Debug("SSE client connected")

	state := sess.Store.Snapshot()
	h.send(c, log, "connected", strconv.FormatUint(state.Version, 10), connectedEvent{
		Version:         state.Version,
		SocketConnected: state.SocketConnected,
		Orders:          len(state.Orders),
	})

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	reqCtx := c.Request.Context()
	for {
		select {
		case <-reqCtx.Done():
			log.Debug("SSE client disconnected")
			return
		case <-h.ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				// session closed or reaped
				h.send(c, log, "closed", "", struct{}{})
				return
			}
			id := ""
			if n.Kind == dashboard.NotificationState {
				id = strconv.FormatUint(n.Version, 10)
			}
			h.send(c, log, string(n.Kind), id, n)
		case <-ticker.C:
			now := h.now()
			sess.Touch(now)
			h.send(c, log, "heartbeat", "", map[string]int64{"timestamp": now.Unix()})
		}
	}
}

func (h *StreamHandler) send(c *gin.Context, log *zap.Logger, event, id string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error("Failed to marshal SSE event", zap.String("event", event), zap.Error(err))
		return
	}
	writeEvent(c.Writer, SSEMessage{Event: event, ID: id, Data: string(data)})
	c.Writer.Flush()
}

// writeEvent writes an SSE event to the response writer
func writeEvent(w io.Writer, msg SSEMessage) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}
