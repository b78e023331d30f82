package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bakery/orderdesk/internal/application/dashboard"
	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/interfaces/http/dto"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// AuditReader reads the recorded actions of an order, newest first
type AuditReader interface {
	ForOrder(ctx context.Context, orderID string, limit int) ([]dashboard.ActionRecord, error)
}

// AuditHandler exposes the action audit trail of orders the caller can see
type AuditHandler struct {
	BaseHandler
	sessions *dashboard.SessionManager
	audit    AuditReader
}

// NewAuditHandler creates an AuditHandler
func NewAuditHandler(sessions *dashboard.SessionManager, audit AuditReader) *AuditHandler {
	return &AuditHandler{sessions: sessions, audit: audit}
}

// ForOrder godoc
//
//	@ID			listOrderAudit
//	@Summary	List recorded actions on an order
//	@Tags		orders
//	@Produce	json
//	@Param		id		path		string	true	"Order ID"
//	@Param		limit	query		int		false	"Max entries"	maximum(200)
//	@Success	200		{object}	Envelope[[]dto.AuditEntryResponse]
//	@Failure	401		{object}	ErrorEnvelope
//	@Failure	404		{object}	ErrorEnvelope
//	@Security	BearerAuth
//	@Router		/orders/{id}/audit [get]
func (h *AuditHandler) ForOrder(c *gin.Context) {
	sess, err := openSession(c, h.sessions)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	orderID := c.Param("id")
	if _, ok := sess.Store.Order(orderID); !ok {
		h.NotFound(c, "Order not found")
		return
	}

	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = min(n, maxAuditLimit)
	}

	records, err := h.audit.ForOrder(c.Request.Context(), orderID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	rtl := localeOf(c).IsRTL()
	out := make([]dto.AuditEntryResponse, 0, len(records))
	for _, r := range records {
		out = append(out, dto.AuditEntryResponse{
			UserID:     r.UserID,
			Role:       string(r.Role),
			RoleLabel:  order.RoleLabel(r.Role, rtl),
			Action:     string(r.Action),
			TargetID:   r.TargetID,
			Outcome:    r.Outcome,
			ErrorCode:  r.ErrorCode,
			DurationMs: r.Duration.Milliseconds(),
			At:         r.At,
		})
	}
	h.Success(c, out)
}
