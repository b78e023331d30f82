package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bakery/orderdesk/internal/application/dashboard"
	"github.com/bakery/orderdesk/internal/domain/order"
	events "github.com/bakery/orderdesk/internal/domain/realtime"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	testTime   = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	bakeryDept = order.Department{ID: "dept-bakery", Name: "المخبز", NameEn: "Bakery"}
	pastryDept = order.Department{ID: "dept-pastry", Name: "الحلويات", NameEn: "Pastry"}
	chefAli    = order.Chef{UserID: "chef-ali", Name: "علي", NameEn: "Ali", Department: bakeryDept}

	productionUser = dashboard.User{ID: "u-prod", Name: "Production", Role: order.RoleProduction, Locale: order.LocaleEn}
	branchUser     = dashboard.User{ID: "u-branch", Name: "Branch", Role: order.RoleBranch, BranchID: "br-1", Locale: order.LocaleAr}
	chefUser       = dashboard.User{ID: "chef-ali", Name: "Ali", Role: order.RoleChef, DepartmentID: "dept-bakery", Locale: order.LocaleEn}
)

// MockOrderAPI mocks the read side of the order service. The remaining
// methods are never called by the realtime package.
type MockOrderAPI struct {
	mock.Mock
	dashboard.OrderAPI
}

func (m *MockOrderAPI) ListOrders(ctx context.Context, token string, q dashboard.OrderQuery) ([]*order.Order, error) {
	args := m.Called(ctx, token, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderAPI) GetOrder(ctx context.Context, token, orderID string) (*order.Order, error) {
	args := m.Called(ctx, token, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

// recordingMetrics collects "event:outcome" pairs
type recordingMetrics struct {
	mu         sync.Mutex
	events     []string
	reconnects int
}

func (m *recordingMetrics) EventReceived(_ context.Context, event, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event+":"+outcome)
}

func (m *recordingMetrics) SourceReconnected(context.Context, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnects++
}

func (m *recordingMetrics) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

func newTestOrder(id string, status order.OrderStatus) *order.Order {
	return &order.Order{
		ID:          id,
		OrderNumber: "ORD-" + id,
		Branch:      order.Branch{ID: "br-1", Name: "فرع الرياض", NameEn: "Riyadh"},
		Status:      status,
		Priority:    order.PriorityMedium,
		Items: []order.OrderItem{
			{
				ID:       "item-1",
				Product:  order.Product{ID: "prod-bread", Name: "خبز", NameEn: "Bread", Department: bakeryDept},
				Quantity: 10,
				Price:    decimal.NewFromInt(5),
				Status:   order.ItemStatusPending,
			},
			{
				ID:       "item-2",
				Product:  order.Product{ID: "prod-cake", Name: "كيك", NameEn: "Cake", Department: pastryDept},
				Quantity: 10,
				Price:    decimal.NewFromInt(5),
				Status:   order.ItemStatusPending,
			},
		},
		TotalAmount: decimal.NewFromInt(100),
		CreatedAt:   testTime,
	}
}

func deliveredOrder(id string) *order.Order {
	o := newTestOrder(id, order.OrderStatusDelivered)
	for i := range o.Items {
		chef := chefAli
		o.Items[i].AssignedTo = &chef
		o.Items[i].Status = order.ItemStatusCompleted
	}
	return o
}

// openSession opens a session for user whose initial list is orders
func openSession(t *testing.T, api *MockOrderAPI, user dashboard.User, opts []dashboard.SessionOption, orders ...*order.Order) (*dashboard.SessionManager, *dashboard.Session) {
	t.Helper()
	api.On("ListOrders", mock.Anything, "tok", mock.Anything).Return(orders, nil).Once()
	mgr := dashboard.NewSessionManager(api, zaptest.NewLogger(t), opts...)
	sess, err := mgr.Open(context.Background(), user, "tok")
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Shutdown(context.Background()) })
	return mgr, sess
}

// frame encodes a wire frame
func frame(t *testing.T, name events.EventName, payload any) []byte {
	t.Helper()
	raw, err := events.Encode(name, payload)
	require.NoError(t, err)
	return raw
}

// decode builds a typed event the way the transports do
func decode(t *testing.T, name events.EventName, payload any) events.Event {
	t.Helper()
	ev, err := events.DecodeFrame(frame(t, name, payload))
	require.NoError(t, err)
	return ev
}

// collectToasts drains the toasts currently buffered on ch
func collectToasts(ch <-chan dashboard.Notification) []dashboard.Toast {
	var out []dashboard.Toast
	for {
		select {
		case n, ok := <-ch:
			if !ok {
				return out
			}
			if n.Toast != nil {
				out = append(out, *n.Toast)
			}
		default:
			return out
		}
	}
}
