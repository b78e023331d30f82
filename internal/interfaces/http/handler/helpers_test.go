package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/bakery/orderdesk/internal/application/dashboard"
	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/infrastructure/auth"
	"github.com/bakery/orderdesk/internal/infrastructure/config"
	"github.com/bakery/orderdesk/internal/infrastructure/logger"
	"github.com/bakery/orderdesk/internal/interfaces/http/dto"
	"github.com/bakery/orderdesk/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

var (
	bakeryDept = order.Department{ID: "dept-bakery", Name: "المخبز", NameEn: "Bakery"}
	pastryDept = order.Department{ID: "dept-pastry", Name: "الحلويات", NameEn: "Pastry"}
	chefAli    = order.Chef{UserID: "chef-ali", Name: "علي", NameEn: "Ali", Department: bakeryDept}
	chefSara   = order.Chef{UserID: "chef-sara", Name: "سارة", NameEn: "Sara", Department: pastryDept}
	riyadh     = order.Branch{ID: "br-1", Name: "فرع الرياض", NameEn: "Riyadh"}

	productionUser = auth.IssueInput{UserID: "u-prod", Name: "Production", Role: order.RoleProduction, Locale: order.LocaleEn}
	branchUser     = auth.IssueInput{UserID: "u-branch", Name: "Branch", Role: order.RoleBranch, BranchID: "br-1", Locale: order.LocaleAr}
	chefUser       = auth.IssueInput{UserID: "chef-ali", Name: "Ali", Role: order.RoleChef, DepartmentID: "dept-bakery", Locale: order.LocaleEn}
)

func newTestOrder(id string, status order.OrderStatus) *order.Order {
	return &order.Order{
		ID:          id,
		OrderNumber: "ORD-" + id,
		Branch:      riyadh,
		Status:      status,
		Priority:    order.PriorityMedium,
		Items: []order.OrderItem{
			{
				ID:       "item-1",
				Product:  order.Product{ID: "prod-bread", Name: "خبز", NameEn: "Bread", Unit: "قطعة", Department: bakeryDept},
				Quantity: 10,
				Price:    decimal.NewFromInt(5),
				Status:   order.ItemStatusPending,
			},
			{
				ID:       "item-2",
				Product:  order.Product{ID: "prod-cake", Name: "كيك", NameEn: "Cake", Unit: "علبة", Department: pastryDept},
				Quantity: 10,
				Price:    decimal.NewFromInt(5),
				Status:   order.ItemStatusPending,
			},
		},
		TotalAmount: decimal.NewFromInt(100),
		CreatedAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func withStatus(o *order.Order, status order.OrderStatus) *order.Order {
	cp := *o
	cp.Status = status
	return &cp
}

// MockOrderAPI is a mock implementation of dashboard.OrderAPI
type MockOrderAPI struct {
	mock.Mock
}

func orderResult(args mock.Arguments) (*order.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderAPI) ListOrders(ctx context.Context, token string, q dashboard.OrderQuery) ([]*order.Order, error) {
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

func (m *MockOrderAPI) CreateReturn(ctx context.Context, token, orderID string, req dashboard.ReturnRequest) (*order.Order, error) {
	return orderResult(m.Called(ctx, token, orderID, req))
}

func (m *MockOrderAPI) ApproveReturn(ctx context.Context, token, orderID, returnID, notes string) (*order.Order, error) {
	return orderResult(m.Called(ctx, token, orderID, returnID, notes))
}

func (m *MockOrderAPI) RejectReturn(ctx context.Context, token, orderID, returnID, notes string) (*order.Order, error) {
	return orderResult(m.Called(ctx, token, orderID, returnID, notes))
}

// fakeReference serves fixed reference data
type fakeReference struct {
	chefs       []order.Chef
	branches    []order.Branch
	departments []order.Department
	err         error
}

func (f *fakeReference) ListChefs(_ context.Context, _, departmentID string) ([]order.Chef, error) {
	if f.err != nil {
		return nil, f.err
	}
	if departmentID == "" {
		return f.chefs, nil
	}
	var out []order.Chef
	for _, ch := range f.chefs {
		if ch.Department.ID == departmentID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *fakeReference) ListBranches(context.Context, string) ([]order.Branch, error) {
	return f.branches, f.err
}

func (f *fakeReference) ListDepartments(context.Context, string) ([]order.Department, error) {
	return f.departments, f.err
}

// testEnv is a gin engine with the auth middleware and a real session manager
type testEnv struct {
	t        *testing.T
	engine   *gin.Engine
	api      *MockOrderAPI
	sessions *dashboard.SessionManager
	jwt      *auth.JWTService
	revoked  *auth.MemoryRevocationList
	log      *zap.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zaptest.NewLogger(t)
	api := new(MockOrderAPI)
	sessions := dashboard.NewSessionManager(api, log)
	t.Cleanup(func() { sessions.Shutdown(context.Background()) })

	jwtSvc := auth.NewJWTService(config.JWTConfig{Secret: "handler-test-secret", Issuer: "bakery"})
	revoked := auth.NewMemoryRevocationList()

	engine := gin.New()
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.JWTAuth(middleware.JWTConfig{
		JWTService:      jwtSvc,
		Revocations:     revoked,
		QueryTokenPaths: []string{"/stream"},
		Logger:          log,
	}))

	return &testEnv{t: t, engine: engine, api: api, sessions: sessions, jwt: jwtSvc, revoked: revoked, log: log}
}

func (e *testEnv) token(in auth.IssueInput) string {
	e.t.Helper()
	if in.TTL == 0 {
		in.TTL = time.Hour
	}
	tok, err := e.jwt.Issue(in)
	require.NoError(e.t, err)
	return tok
}

// expectList makes the initial session load return orders
func (e *testEnv) expectList(orders ...*order.Order) {
	e.api.On("ListOrders", mock.Anything, mock.Anything, mock.Anything).Return(orders, nil)
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(e.t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

// envelope decodes a response body whose data is of type T
type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
	Meta    *dto.Meta      `json:"meta"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := decode[json.RawMessage](t, w)
	require.NotNil(t, env.Error, w.Body.String())
	return env.Error.Code
}
