package dashboard

import (
	"sync"
	"time"

	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationKind tells subscribers what changed
type NotificationKind string

const (
	NotificationState  NotificationKind = "state"
	NotificationToast  NotificationKind = "toast"
	NotificationSocket NotificationKind = "socket"
)

// ToastLevel is the severity of a toast
type ToastLevel string

const (
	ToastInfo    ToastLevel = "info"
	ToastSuccess ToastLevel = "success"
	ToastWarning ToastLevel = "warning"
	ToastError   ToastLevel = "error"
)

// Toast is a short user-facing message
type Toast struct {
	ID      string     `json:"id"`
	Level   ToastLevel `json:"level"`
	Code    string     `json:"code,omitempty"`
	Message string     `json:"message"`
	OrderID string     `json:"orderId,omitempty"`
}

// Notification is pushed to a session's subscribers
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Version   uint64           `json:"version,omitempty"`
	Action    string           `json:"action,omitempty"`
	OrderID   string           `json:"orderId,omitempty"`
	Toast     *Toast           `json:"toast,omitempty"`
	Connected *bool            `json:"connected,omitempty"`
	At        time.Time        `json:"at"`
}

const defaultHubBuffer = 64

// Hub fans notifications out to the open streams of one session.
// Slow subscribers lose messages rather than block publishers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]chan Notification
	buffer int
	closed bool
	logger *zap.Logger
}

// NewHub creates a hub with the given per-subscriber buffer
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultHubBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[string]chan Notification),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe returns a notification channel and a cancel func. The channel
// is closed on cancel or when the hub closes.
func (h *Hub) Subscribe() (<-chan Notification, func()) {
	ch := make(chan Notification, h.buffer)
	id := uuid.NewString()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers n to every subscriber without blocking
func (h *Hub) Publish(n Notification) {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- n:
		default:
			h.logger.Warn("Subscriber channel full, dropping notification",
				zap.String("subscriber_id", id),
				zap.String("kind", string(n.Kind)))
		}
	}
}

// Len returns the number of subscribers
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscriber channel
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}

// NewToast builds a toast with a localized notice text
func NewToast(level ToastLevel, notice order.Notice, locale order.Locale, orderID string, args ...any) Toast {
	return Toast{
		ID:      uuid.NewString(),
		Level:   level,
		Code:    string(notice),
		Message: order.NoticeText(notice, locale.IsRTL(), args...),
		OrderID: orderID,
	}
}
