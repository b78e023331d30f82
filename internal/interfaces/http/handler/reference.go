package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bakery/orderdesk/internal/application/dashboard"
	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/interfaces/http/dto"
	"github.com/bakery/orderdesk/internal/interfaces/http/middleware"
)

// ReferenceHandler serves the cached lookups behind assignment forms and filters
type ReferenceHandler struct {
	BaseHandler
	reference dashboard.ReferenceData
}

// NewReferenceHandler creates a ReferenceHandler
func NewReferenceHandler(reference dashboard.ReferenceData) *ReferenceHandler {
	return &ReferenceHandler{reference: reference}
}

func localeOf(c *gin.Context) order.Locale {
	if claims := middleware.GetJWTClaims(c); claims != nil {
		return order.ParseLocale(claims.Locale)
	}
	return order.LocaleAr
}

// ListChefs godoc
//
//	@ID			listChefs
//	@Summary	List chefs
//	@Tags		reference
//	@Produce	json
//	@Param		department	query		string	false	"Department ID"
//	@Success	200			{object}	Envelope[[]dto.ChefResponse]
//	@Failure	401			{object}	ErrorEnvelope
//	@Failure	503			{object}	ErrorEnvelope
//	@Security	BearerAuth
//	@Router		/chefs [get]
func (h *ReferenceHandler) ListChefs(c *gin.Context) {
	chefs, err := h.reference.ListChefs(c.Request.Context(), middleware.GetJWTToken(c), c.Query("department"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	locale := localeOf(c)
	out := make([]dto.ChefResponse, 0, len(chefs))
	for _, ch := range chefs {
		out = append(out, dto.ChefResponse{
			UserID:         ch.UserID,
			Name:           ch.DisplayName(locale),
			DepartmentID:   ch.Department.ID,
			DepartmentName: ch.Department.DisplayName(locale),
		})
	}
	h.Success(c, out)
}

// ListBranches godoc
//
//	@ID			listBranches
//	@Summary	List branches
//	@Tags		reference
//	@Produce	json
//	@Success	200	{object}	Envelope[[]dto.BranchResponse]
//	@Failure	401	{object}	ErrorEnvelope
//	@Security	BearerAuth
//	@Router		/branches [get]
func (h *ReferenceHandler) ListBranches(c *gin.Context) {
	branches, err := h.reference.ListBranches(c.Request.Context(), middleware.GetJWTToken(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	locale := localeOf(c)
	out := make([]dto.BranchResponse, 0, len(branches))
	for _, b := range branches {
		out = append(out, dto.BranchResponse{ID: b.ID, Name: b.DisplayName(locale)})
	}
	h.Success(c, out)
}

// ListDepartments godoc
//
//	@ID			listDepartments
//	@Summary	List departments
//	@Tags		reference
//	@Produce	json
//	@Success	200	{object}	Envelope[[]dto.DepartmentResponse]
//	@Failure	401	{object}	ErrorEnvelope
//	@Security	BearerAuth
//	@Router		/departments [get]
func (h *ReferenceHandler) ListDepartments(c *gin.Context) {
	departments, err := h.reference.ListDepartments(c.Request.Context(), middleware.GetJWTToken(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	locale := localeOf(c)
	out := make([]dto.DepartmentResponse, 0, len(departments))
	for _, d := range departments {
		out = append(out, dto.DepartmentResponse{ID: d.ID, Name: d.DisplayName(locale)})
	}
	h.Success(c, out)
}

// cacheInvalidator is implemented by reference sources that cache
type cacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Invalidate godoc
//
//	@ID				invalidateReference
//	@Summary		Drop cached reference data
//	@Description	Admin only. Clears the chef, branch and department caches on every replica.
//	@Tags			reference
//	@Success		204
//	@Failure		401	{object}	ErrorEnvelope
//	@Failure		403	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/reference/invalidate [post]
func (h *ReferenceHandler) Invalidate(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil || order.Role(claims.Role) != order.RoleAdmin {
		h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, "Only admins can invalidate reference data")
		return
	}
	if inv, ok := h.reference.(cacheInvalidator); ok {
		if err := inv.Invalidate(c.Request.Context()); err != nil {
			h.HandleError(c, err)
			return
		}
	}
	h.NoContent(c)
}
