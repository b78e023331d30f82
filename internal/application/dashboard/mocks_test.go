package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/infrastructure/export"
	"github.com/stretchr/testify/mock"
)

// MockOrderAPI is a mock implementation of OrderAPI
type MockOrderAPI struct {
	mock.Mock
}

func orderResult(args mock.Arguments) (*order.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderAPI) ListOrders(ctx context.Context, token string, q OrderQuery) ([]*order.Order, error) {
	args := m.Called(ctx, token, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderAPI) GetOrder(ctx context.Context, token, orderID string) (*order.Order, error) {
	return orderResult(m.Called(ctx, token, orderID))
}

func (m *MockOrderAPI) ApproveOrder(ctx context.Context, token, orderID string) (*order.Order, error) {
	return orderResult(m.Called(ctx, token, orderID))
}

func (m *MockOrderAPI) CancelOrder(ctx context.Context, token, orderID, reason string) (*order.Order, error) {
	return orderResult(m.Called(ctx, token, orderID, reason))
}

func (m *MockOrderAPI) ShipOrder(ctx context.Context, token, orderID string) (*order.Order, error) {
	return orderResult(m.Called(ctx, token, orderID))
}

func (m *MockOrderAPI) AssignChefs(ctx context.Context, token, orderID string, items []order.ItemAssignment) (*order.Order, error) {
	return orderResult(m.Called(ctx, token, orderID, items))
}

func (m *MockOrderAPI) ConfirmDelivery(ctx context.Context, token, orderID string) (*order.Order, error) {
	return orderResult(m.Called(ctx, token, orderID))
}

func (m *MockOrderAPI) UpdateItemStatus(ctx context.Context, token, orderID, itemID string, status order.ItemStatus) (*order.Order, error) {
	return orderResult(m.Called(ctx, token, orderID, itemID, status))
}

func (m *MockOrderAPI) CreateReturn(ctx context.Context, token, orderID string, req ReturnRequest) (*order.Order, error) {
	return orderResult(m.Called(ctx, token, orderID, req))
}

func (m *MockOrderAPI) ApproveReturn(ctx context.Context, token, orderID, returnID, notes string) (*order.Order, error) {
	return orderResult(m.Called(ctx, token, orderID, returnID, notes))
}

func (m *MockOrderAPI) RejectReturn(ctx context.Context, token, orderID, returnID, notes string) (*order.Order, error) {
	return orderResult(m.Called(ctx, token, orderID, returnID, notes))
}

// MockActionLog is a mock implementation of ActionLog
type MockActionLog struct {
	mock.Mock
}

func (m *MockActionLog) Record(ctx context.Context, rec ActionRecord) error {
	return m.Called(ctx, rec).Error(0)
}

// MockSnapshotStore is a mock implementation of SnapshotStore
type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) Load(ctx context.Context, userID string) (*Snapshot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Snapshot), args.Error(1)
}

func (m *MockSnapshotStore) Save(ctx context.Context, snap Snapshot) error {
	return m.Called(ctx, snap).Error(0)
}

// recordingMetrics collects metric calls
type recordingMetrics struct {
	mu       sync.Mutex
	actions  []string
	sessions []int
}

func (r *recordingMetrics) ActionCompleted(_ context.Context, action order.Action, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, string(action)+":"+outcome)
}

func (r *recordingMetrics) SessionsActive(_ context.Context, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, n)
}

// fakeFeed records started sessions
type fakeFeed struct {
	mu      sync.Mutex
	started []string
	stopped []string
	err     error
}

func (f *fakeFeed) Start(_ context.Context, sess *Session) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.started = append(f.started, sess.User.ID)
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.stopped = append(f.stopped, sess.User.ID)
		f.mu.Unlock()
	}, nil
}

// fakeWriter captures the rendered document
type fakeWriter struct {
	doc  export.Document
	data []byte
	err  error
}

func (w *fakeWriter) Write(_ context.Context, doc export.Document) ([]byte, error) {
	w.doc = doc
	return w.data, w.err
}

// drain returns the notifications buffered on ch
func drain(ch <-chan Notification) []Notification {
	var out []Notification
	for {
		select {
		case n, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, n)
		default:
			return out
		}
	}
}

func toasts(ns []Notification) []Toast {
	var out []Toast
	for _, n := range ns {
		if n.Kind == NotificationToast && n.Toast != nil {
			out = append(out, *n.Toast)
		}
	}
	return out
}
