package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bakery/orderdesk/internal/application/dashboard"
	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/interfaces/http/dto"
)

// OrderHandler serves the session's order list, counters and view settings
type OrderHandler struct {
	BaseHandler
	sessions *dashboard.SessionManager
}

// NewOrderHandler creates an OrderHandler
func NewOrderHandler(sessions *dashboard.SessionManager) *OrderHandler {
	return &OrderHandler{sessions: sessions}
}

// viewActions turns the present fields of req into store actions. Filters go
// first since they reset the page.
func viewActions(req dto.ViewRequest) []dashboard.Action {
	var acts []dashboard.Action
	if req.FilterStatus != nil {
		acts = append(acts, dashboard.SetFilterStatus{Status: order.OrderStatus(*req.FilterStatus)})
	}
	if req.FilterBranch != nil {
		acts = append(acts, dashboard.SetFilterBranch{BranchID: *req.FilterBranch})
	}
	if req.FilterPriority != nil {
		acts = append(acts, dashboard.SetFilterPriority{Priority: order.Priority(*req.FilterPriority)})
	}
	if req.FilterDepartment != nil {
		acts = append(acts, dashboard.SetFilterDepartment{DepartmentID: *req.FilterDepartment})
	}
	if req.SearchQuery != nil {
		acts = append(acts, dashboard.SetSearchQuery{Query: *req.SearchQuery})
	}
	if req.SortBy != nil {
		acts = append(acts, dashboard.SetSortBy{Field: dashboard.SortField(*req.SortBy)})
	}
	if req.SortDirection != nil {
		acts = append(acts, dashboard.SetSortDirection{Direction: dashboard.SortDirection(*req.SortDirection)})
	}
	if req.PageSize != nil {
		acts = append(acts, dashboard.SetPageSize{Size: *req.PageSize})
	}
	if req.Page != nil {
		acts = append(acts, dashboard.SetPage{Page: *req.Page})
	}
	return acts
}

func applyView(sess *dashboard.Session, req dto.ViewRequest) {
	for _, a := range viewActions(req) {
		sess.Store.Dispatch(a)
	}
}

func (h *OrderHandler) respondPage(c *gin.Context, sess *dashboard.Session) {
	state := sess.Store.Snapshot()
	page := state.Page(sess.Locale())
	items := make([]dto.OrderListItem, 0, len(page.Orders))
	for _, o := range page.Orders {
		items = append(items, dto.OrderListItem{
			OrderView: order.NewOrderView(o, sess.Locale()),
			Stale:     state.IsStale(o.ID),
		})
	}
	h.SuccessWithMeta(c, items, int64(page.Total), page.CurrentPage, page.PageSize)
}

// List godoc
//
//	@ID				listOrders
//	@Summary		List the session's orders
//	@Description	Returns one page of the filtered, sorted order list. Query parameters update the session view before paging.
//	@Tags			orders
//	@Produce		json
//	@Param			status		query		string	false	"Status filter"
//	@Param			branch		query		string	false	"Branch filter"
//	@Param			priority	query		string	false	"Priority filter"	Enums(low, medium, high, urgent)
//	@Param			department	query		string	false	"Department filter"
//	@Param			q			query		string	false	"Search by order number or branch"
//	@Param			sort		query		string	false	"Sort field"		Enums(createdAt, orderNumber, priority, totalAmount, status, branch)
//	@Param			direction	query		string	false	"Sort direction"	Enums(asc, desc)
//	@Param			page		query		int		false	"Page (1-based)"
//	@Param			page_size	query		int		false	"Page size"	maximum(100)
//	@Success		200			{object}	Envelope[[]dto.OrderListItem]
//	@Failure		401			{object}	ErrorEnvelope
//	@Failure		422			{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	var req dto.ViewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	sess, err := openSession(c, h.sessions)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	applyView(sess, req)
	h.respondPage(c, sess)
}

// UpdateView godoc
//
//	@ID				updateView
//	@Summary		Update the session view
//	@Description	Sets filters, search, sort and paging of the session's order list and returns the resulting page.
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.ViewRequest	true	"View changes"
//	@Success		200		{object}	Envelope[[]dto.OrderListItem]
//	@Failure		401		{object}	ErrorEnvelope
//	@Failure		422		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/view [put]
func (h *OrderHandler) UpdateView(c *gin.Context) {
	var req dto.ViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	sess, err := openSession(c, h.sessions)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	applyView(sess, req)
	h.respondPage(c, sess)
}

// Get godoc
//
//	@ID			getOrder
//	@Summary	Get an order
//	@Tags		orders
//	@Produce	json
//	@Param		id	path		string	true	"Order ID"
//	@Success	200	{object}	Envelope[dto.OrderDetailResponse]
//	@Failure	401	{object}	ErrorEnvelope
//	@Failure	404	{object}	ErrorEnvelope
//	@Security	BearerAuth
//	@Router		/orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	sess, err := openSession(c, h.sessions)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	detail, ok := orderDetail(sess, c.Param("id"))
	if !ok {
		h.NotFound(c, "Order not found")
		return
	}
	h.Success(c, detail)
}

// Actions godoc
//
//	@ID				listOrderActions
//	@Summary		List the actions available on an order
//	@Description	Role-gated: only actions the caller may perform in the order's current state are listed.
//	@Tags			orders
//	@Produce		json
//	@Param			id	path		string	true	"Order ID"
//	@Success		200	{object}	Envelope[[]order.AvailableAction]
//	@Failure		401	{object}	ErrorEnvelope
//	@Failure		404	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/orders/{id}/actions [get]
func (h *OrderHandler) Actions(c *gin.Context) {
	sess, err := openSession(c, h.sessions)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	o, ok := sess.Store.Order(c.Param("id"))
	if !ok {
		h.NotFound(c, "Order not found")
		return
	}
	actions := order.AvailableActions(sess.Actor(), o)
	if actions == nil {
		actions = []order.AvailableAction{}
	}
	h.Success(c, actions)
}

// Counts godoc
//
//	@ID				countOrders
//	@Summary		Count orders per status
//	@Description	Counters over every order of the session, ignoring filters.
//	@Tags			orders
//	@Produce		json
//	@Success		200	{object}	Envelope[dashboard.StatusCounts]
//	@Failure		401	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/orders/counts [get]
func (h *OrderHandler) Counts(c *gin.Context) {
	sess, err := openSession(c, h.sessions)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sess.Store.Counts())
}

// orderDetail builds the detail view from the session's current state
func orderDetail(sess *dashboard.Session, orderID string) (dto.OrderDetailResponse, bool) {
	state := sess.Store.Snapshot()
	idx := state.IndexOf(orderID)
	if idx < 0 {
		return dto.OrderDetailResponse{}, false
	}
	o := state.Orders[idx]
	actions := order.AvailableActions(sess.Actor(), o)
	if actions == nil {
		actions = []order.AvailableAction{}
	}
	return dto.OrderDetailResponse{
		Order:   order.NewOrderView(o, sess.Locale()),
		Actions: actions,
		Stale:   state.IsStale(orderID),
	}, true
}
