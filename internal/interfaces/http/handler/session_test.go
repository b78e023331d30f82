package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/domain/shared"
	"github.com/bakery/orderdesk/internal/interfaces/http/dto"
)

func newSessionEnv(t *testing.T) *testEnv {
	e := newTestEnv(t)
	h := NewSessionHandler(e.sessions, e.revoked)
	e.engine.POST("/session", h.Open)
	e.engine.GET("/session", h.Get)
	e.engine.DELETE("/session", h.Close)
	e.engine.POST("/session/reload", h.Reload)
	return e
}

func TestSessionHandler_Open(t *testing.T) {
	e := newSessionEnv(t)
	e.expectList(newTestOrder("ord-1", order.OrderStatusPending), newTestOrder("ord-2", order.OrderStatusApproved))
	tok := e.token(branchUser)

	w := e.do(http.MethodPost, "/session", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[dto.SessionResponse](t, w)
	assert.True(t, res.Success)
	assert.Equal(t, "u-branch", res.Data.UserID)
	assert.Equal(t, order.RoleBranch, res.Data.Role)
	assert.Equal(t, "فرع", res.Data.RoleLabel, "arabic session gets the arabic label")
	assert.Equal(t, "br-1", res.Data.BranchID)
	assert.Equal(t, order.LocaleAr, res.Data.Locale)
	assert.Equal(t, 2, res.Data.Orders)

	// idempotent: the second call reuses the session without a new fetch
	w = e.do(http.MethodPost, "/session", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	e.api.AssertNumberOfCalls(t, "ListOrders", 1)
	assert.Equal(t, 1, e.sessions.Len())
}

func TestSessionHandler_OpenUpstreamDown(t *testing.T) {
	e := newSessionEnv(t)
	e.api.On("ListOrders", mock.Anything, mock.Anything, mock.Anything).Return(nil, shared.ErrUpstreamDown)

	w := e.do(http.MethodPost, "/session", e.token(productionUser), nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, dto.ErrCodeUpstreamUnavailable, errorCode(t, w))
	assert.Zero(t, e.sessions.Len())
}

func TestSessionHandler_Unauthenticated(t *testing.T) {
	e := newSessionEnv(t)

	w := e.do(http.MethodPost, "/session", "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	e.api.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionHandler_Get(t *testing.T) {
	e := newSessionEnv(t)
	e.expectList(newTestOrder("ord-1", order.OrderStatusPending))
	tok := e.token(productionUser)

	w := e.do(http.MethodGet, "/session", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	e.do(http.MethodPost, "/session", tok, nil)
	w = e.do(http.MethodGet, "/session", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-prod", decode[dto.SessionResponse](t, w).Data.UserID)
}

func TestSessionHandler_Reload(t *testing.T) {
	e := newSessionEnv(t)
	e.api.On("ListOrders", mock.Anything, mock.Anything, mock.Anything).
		Return([]*order.Order{newTestOrder("ord-1", order.OrderStatusPending)}, nil).Once()
	e.api.On("ListOrders", mock.Anything, mock.Anything, mock.Anything).
		Return([]*order.Order{
			newTestOrder("ord-1", order.OrderStatusApproved),
			newTestOrder("ord-2", order.OrderStatusPending),
			newTestOrder("ord-3", order.OrderStatusPending),
		}, nil)
	tok := e.token(productionUser)

	e.do(http.MethodPost, "/session", tok, nil)
	w := e.do(http.MethodPost, "/session/reload", tok, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 3, decode[dto.SessionResponse](t, w).Data.Orders)
	e.api.AssertNumberOfCalls(t, "ListOrders", 2)
}

func TestSessionHandler_CloseRevokesToken(t *testing.T) {
	e := newSessionEnv(t)
	e.expectList(newTestOrder("ord-1", order.OrderStatusPending))
	tok := e.token(productionUser)

	e.do(http.MethodPost, "/session", tok, nil)
	require.Equal(t, 1, e.sessions.Len())

	w := e.do(http.MethodDelete, "/session", tok, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, e.sessions.Len())

	w = e.do(http.MethodGet, "/session", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeTokenRevoked, errorCode(t, w))
}

func TestSessionHandler_CloseWithoutSession(t *testing.T) {
	e := newSessionEnv(t)

	w := e.do(http.MethodDelete, "/session", e.token(chefUser), nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
