package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakery/orderdesk/internal/application/dashboard"
	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/domain/shared"
	"github.com/bakery/orderdesk/internal/interfaces/http/dto"
)

func newReferenceEnv(t *testing.T, ref dashboard.ReferenceData) *testEnv {
	e := newTestEnv(t)
	h := NewReferenceHandler(ref)
	e.engine.POST("/reference/invalidate", h.Invalidate)
	e.engine.GET("/chefs", h.ListChefs)
	e.engine.GET("/branches", h.ListBranches)
	e.engine.GET("/departments", h.ListDepartments)
	return e
}

func TestReferenceHandler_ListChefs(t *testing.T) {
	e := newReferenceEnv(t, &fakeReference{chefs: []order.Chef{chefAli, chefSara}})

	w := e.do(http.MethodGet, "/chefs", e.token(productionUser), nil)
	require.Equal(t, http.StatusOK, w.Code)
	chefs := decode[[]dto.ChefResponse](t, w).Data
	require.Len(t, chefs, 2)
	assert.Equal(t, "Ali", chefs[0].Name)
	assert.Equal(t, "Bakery", chefs[0].DepartmentName)

	w = e.do(http.MethodGet, "/chefs?department=dept-pastry", e.token(productionUser), nil)
	chefs = decode[[]dto.ChefResponse](t, w).Data
	require.Len(t, chefs, 1)
	assert.Equal(t, "chef-sara", chefs[0].UserID)
}

func TestReferenceHandler_LocalizesNames(t *testing.T) {
	e := newReferenceEnv(t, &fakeReference{
		branches:    []order.Branch{riyadh},
		departments: []order.Department{bakeryDept},
	})
	arabic := e.token(branchUser)
	english := e.token(productionUser)

	w := e.do(http.MethodGet, "/branches", arabic, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "فرع الرياض", decode[[]dto.BranchResponse](t, w).Data[0].Name)

	w = e.do(http.MethodGet, "/branches", english, nil)
	assert.Equal(t, "Riyadh", decode[[]dto.BranchResponse](t, w).Data[0].Name)

	w = e.do(http.MethodGet, "/departments", arabic, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "المخبز", decode[[]dto.DepartmentResponse](t, w).Data[0].Name)
}

func TestReferenceHandler_EmptyListIsArray(t *testing.T) {
	e := newReferenceEnv(t, &fakeReference{})

	w := e.do(http.MethodGet, "/departments", e.token(productionUser), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())
}

func TestReferenceHandler_UpstreamDown(t *testing.T) {
	e := newReferenceEnv(t, &fakeReference{err: shared.ErrUpstreamDown})

	w := e.do(http.MethodGet, "/chefs", e.token(productionUser), nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, dto.ErrCodeUpstreamUnavailable, errorCode(t, w))
}

type cachingReference struct {
	fakeReference
	invalidated int
}

func (c *cachingReference) Invalidate(context.Context) error {
	c.invalidated++
	return nil
}

func TestReferenceHandler_Invalidate(t *testing.T) {
	ref := &cachingReference{}
	e := newReferenceEnv(t, ref)

	w := e.do(http.MethodPost, "/reference/invalidate", e.token(productionUser), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, ref.invalidated)

	admin := productionUser
	admin.UserID = "u-admin"
	admin.Role = order.RoleAdmin
	w = e.do(http.MethodPost, "/reference/invalidate", e.token(admin), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, ref.invalidated)
}
