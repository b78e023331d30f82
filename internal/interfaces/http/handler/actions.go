package handler

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/bakery/orderdesk/internal/application/dashboard"
	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/interfaces/http/dto"
)

// unknownChefCode marks an assignment naming a chef the reference data does not know
const unknownChefCode = "UNKNOWN_CHEF"

// ActionHandler submits order mutations through the action service. Every
// successful call answers with the order as the store now holds it.
type ActionHandler struct {
	BaseHandler
	sessions  *dashboard.SessionManager
	actions   *dashboard.ActionService
	reference dashboard.ReferenceData
}

// NewActionHandler creates an ActionHandler
func NewActionHandler(sessions *dashboard.SessionManager, actions *dashboard.ActionService, reference dashboard.ReferenceData) *ActionHandler {
	return &ActionHandler{sessions: sessions, actions: actions, reference: reference}
}

// bindOptionalJSON binds a body that may be absent altogether
func bindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type mutation func(c *gin.Context, sess *dashboard.Session, orderID string) (*order.Order, error)

func (h *ActionHandler) run(c *gin.Context, m mutation) {
	sess, err := openSession(c, h.sessions)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	orderID := c.Param("id")
	if _, err := m(c, sess, orderID); err != nil {
		h.HandleError(c, err)
		return
	}
	detail, ok := orderDetail(sess, orderID)
	if !ok {
		// the order left the caller's scope with this change
		h.NoContent(c)
		return
	}
	h.Success(c, detail)
}

// Approve godoc
//
//	@ID			approveOrder
//	@Summary	Approve a pending order
//	@Tags		actions
//	@Produce	json
//	@Param		id	path		string	true	"Order ID"
//	@Success	200	{object}	Envelope[dto.OrderDetailResponse]
//	@Failure	403	{object}	ErrorEnvelope
//	@Failure	404	{object}	ErrorEnvelope
//	@Failure	409	{object}	ErrorEnvelope
//	@Failure	422	{object}	ErrorEnvelope
//	@Failure	503	{object}	ErrorEnvelope
//	@Security	BearerAuth
//	@Router		/orders/{id}/approve [post]
func (h *ActionHandler) Approve(c *gin.Context) {
	h.run(c, func(c *gin.Context, sess *dashboard.Session, orderID string) (*order.Order, error) {
		return h.actions.Approve(c.Request.Context(), sess, orderID)
	})
}

// Cancel godoc
//
//	@ID			cancelOrder
//	@Summary	Cancel an order that has not shipped
//	@Tags		actions
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"Order ID"
//	@Param		request	body		dto.CancelRequest	false	"Cancellation reason"
//	@Success	200		{object}	Envelope[dto.OrderDetailResponse]
//	@Failure	403		{object}	ErrorEnvelope
//	@Failure	409		{object}	ErrorEnvelope
//	@Failure	422		{object}	ErrorEnvelope
//	@Security	BearerAuth
//	@Router		/orders/{id}/cancel [post]
func (h *ActionHandler) Cancel(c *gin.Context) {
	var req dto.CancelRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.BindError(c, err)
		return
	}
	h.run(c, func(c *gin.Context, sess *dashboard.Session, orderID string) (*order.Order, error) {
		return h.actions.Cancel(c.Request.Context(), sess, orderID, req.Reason)
	})
}

// Ship godoc
//
//	@ID			shipOrder
//	@Summary	Ship a completed order
//	@Tags		actions
//	@Produce	json
//	@Param		id	path		string	true	"Order ID"
//	@Success	200	{object}	Envelope[dto.OrderDetailResponse]
//	@Failure	403	{object}	ErrorEnvelope
//	@Failure	409	{object}	ErrorEnvelope
//	@Failure	422	{object}	ErrorEnvelope
//	@Security	BearerAuth
//	@Router		/orders/{id}/ship [post]
func (h *ActionHandler) Ship(c *gin.Context) {
	h.run(c, func(c *gin.Context, sess *dashboard.Session, orderID string) (*order.Order, error) {
		return h.actions.Ship(c.Request.Context(), sess, orderID)
	})
}

// ConfirmDelivery godoc
//
//	@ID			confirmDelivery
//	@Summary	Confirm receipt of an order in transit
//	@Tags		actions
//	@Produce	json
//	@Param		id	path		string	true	"Order ID"
//	@Success	200	{object}	Envelope[dto.OrderDetailResponse]
//	@Failure	403	{object}	ErrorEnvelope
//	@Failure	409	{object}	ErrorEnvelope
//	@Failure	422	{object}	ErrorEnvelope
//	@Security	BearerAuth
//	@Router		/orders/{id}/confirm-delivery [post]
func (h *ActionHandler) ConfirmDelivery(c *gin.Context) {
	h.run(c, func(c *gin.Context, sess *dashboard.Session, orderID string) (*order.Order, error) {
		return h.actions.ConfirmDelivery(c.Request.Context(), sess, orderID)
	})
}

// Assign godoc
//
//	@ID				assignChefs
//	@Summary		Assign chefs to order items
//	@Description	Chef ids are resolved against the chef reference data before submission.
//	@Tags			actions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Order ID"
//	@Param			request	body		dto.AssignRequest	true	"Assignments"
//	@Success		200		{object}	Envelope[dto.OrderDetailResponse]
//	@Failure		403		{object}	ErrorEnvelope
//	@Failure		409		{object}	ErrorEnvelope
//	@Failure		422		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/orders/{id}/assign [post]
func (h *ActionHandler) Assign(c *gin.Context) {
	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	h.run(c, func(c *gin.Context, sess *dashboard.Session, orderID string) (*order.Order, error) {
		items, err := h.resolveAssignments(c, sess, req)
		if err != nil {
			return nil, err
		}
		return h.actions.AssignChefs(c.Request.Context(), sess, orderID, items)
	})
}

func (h *ActionHandler) resolveAssignments(c *gin.Context, sess *dashboard.Session, req dto.AssignRequest) ([]order.ItemAssignment, error) {
	chefs, err := h.reference.ListChefs(c.Request.Context(), sess.Token(), "")
	if err != nil {
		return nil, err
	}
	byID := make(map[string]order.Chef, len(chefs))
	for _, ch := range chefs {
		byID[ch.UserID] = ch
	}

	verr := &order.ValidationError{}
	items := make([]order.ItemAssignment, 0, len(req.Items))
	for i, a := range req.Items {
		chef, ok := byID[a.ChefID]
		if !ok {
			verr.Fields = append(verr.Fields, order.FieldError{
				Field:   fmt.Sprintf("items[%d].chefId", i),
				Code:    unknownChefCode,
				Message: "Unknown chef",
			})
			continue
		}
		items = append(items, order.ItemAssignment{
			ItemID:     a.ItemID,
			AssignedTo: &chef,
			Status:     order.ItemStatusAssigned,
		})
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return items, nil
}

// UpdateItemStatus godoc
//
//	@ID				updateItemStatus
//	@Summary		Start or complete an assigned item
//	@Description	Chefs move their own items to in_progress, then completed.
//	@Tags			actions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Order ID"
//	@Param			itemId	path		string					true	"Item ID"
//	@Param			request	body		dto.ItemStatusRequest	true	"Target status"
//	@Success		200		{object}	Envelope[dto.OrderDetailResponse]
//	@Failure		403		{object}	ErrorEnvelope
//	@Failure		409		{object}	ErrorEnvelope
//	@Failure		422		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/orders/{id}/items/{itemId}/status [post]
func (h *ActionHandler) UpdateItemStatus(c *gin.Context) {
	var req dto.ItemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	itemID := c.Param("itemId")
	h.run(c, func(c *gin.Context, sess *dashboard.Session, orderID string) (*order.Order, error) {
		if order.ItemStatus(req.Status) == order.ItemStatusInProgress {
			return h.actions.StartItem(c.Request.Context(), sess, orderID, itemID)
		}
		return h.actions.CompleteItem(c.Request.Context(), sess, orderID, itemID)
	})
}

// CreateReturn godoc
//
//	@ID				createReturn
//	@Summary		Request a return on a delivered order
//	@Description	Quantities are checked against what remains returnable per product.
//	@Tags			actions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Order ID"
//	@Param			request	body		dto.CreateReturnRequest	true	"Return request"
//	@Success		200		{object}	Envelope[dto.OrderDetailResponse]
//	@Failure		403		{object}	ErrorEnvelope
//	@Failure		409		{object}	ErrorEnvelope
//	@Failure		422		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/orders/{id}/returns [post]
func (h *ActionHandler) CreateReturn(c *gin.Context) {
	var req dto.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	rr := dashboard.ReturnRequest{Reason: req.Reason, Notes: req.Notes}
	for _, it := range req.Items {
		rr.Items = append(rr.Items, order.ReturnItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Reason:    it.Reason,
			Notes:     it.Notes,
		})
	}
	h.run(c, func(c *gin.Context, sess *dashboard.Session, orderID string) (*order.Order, error) {
		return h.actions.RequestReturn(c.Request.Context(), sess, orderID, rr)
	})
}

// ApproveReturn godoc
//
//	@ID			approveReturn
//	@Summary	Approve a pending return
//	@Tags		actions
//	@Accept		json
//	@Produce	json
//	@Param		id			path		string					true	"Order ID"
//	@Param		returnId	path		string					true	"Return ID"
//	@Param		request		body		dto.ReviewReturnRequest	false	"Review notes"
//	@Success	200			{object}	Envelope[dto.OrderDetailResponse]
//	@Failure	403			{object}	ErrorEnvelope
//	@Failure	404			{object}	ErrorEnvelope
//	@Failure	422			{object}	ErrorEnvelope
//	@Security	BearerAuth
//	@Router		/orders/{id}/returns/{returnId}/approve [post]
func (h *ActionHandler) ApproveReturn(c *gin.Context) {
	h.review(c, h.actions.ApproveReturn)
}

// RejectReturn godoc
//
//	@ID			rejectReturn
//	@Summary	Reject a pending return
//	@Tags		actions
//	@Accept		json
//	@Produce	json
//	@Param		id			path		string					true	"Order ID"
//	@Param		returnId	path		string					true	"Return ID"
//	@Param		request		body		dto.ReviewReturnRequest	false	"Review notes"
//	@Success	200			{object}	Envelope[dto.OrderDetailResponse]
//	@Failure	403			{object}	ErrorEnvelope
//	@Failure	404			{object}	ErrorEnvelope
//	@Failure	422			{object}	ErrorEnvelope
//	@Security	BearerAuth
//	@Router		/orders/{id}/returns/{returnId}/reject [post]
func (h *ActionHandler) RejectReturn(c *gin.Context) {
	h.review(c, h.actions.RejectReturn)
}

type reviewFunc func(ctx context.Context, sess *dashboard.Session, orderID, returnID, notes string) (*order.Order, error)

func (h *ActionHandler) review(c *gin.Context, fn reviewFunc) {
	var req dto.ReviewReturnRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.BindError(c, err)
		return
	}
	returnID := c.Param("returnId")
	h.run(c, func(c *gin.Context, sess *dashboard.Session, orderID string) (*order.Order, error) {
		return fn(c.Request.Context(), sess, orderID, returnID, req.Notes)
	})
}
