package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bakery/orderdesk/internal/application/dashboard"
	"github.com/bakery/orderdesk/internal/domain/order"
)

// ListOrders returns the orders in scope of q
func (c *Client) ListOrders(ctx context.Context, token string, q dashboard.OrderQuery) ([]*order.Order, error) {
	query := url.Values{}
	if q.BranchID != "" {
		query.Set("branch", q.BranchID)
	}
	if q.DepartmentID != "" {
		query.Set("department", q.DepartmentID)
	}
	if q.Status != "" {
		query.Set("status", string(q.Status))
	}
	var orders []*order.Order
	if err := c.do(ctx, token, http.MethodGet, "/orders", "/orders", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) GetOrder(ctx context.Context, token, orderID string) (*order.Order, error) {
	return c.orderCall(ctx, token, http.MethodGet, "/orders/:id", escape("orders", orderID), nil)
}

func (c *Client) ApproveOrder(ctx context.Context, token, orderID string) (*order.Order, error) {
	return c.orderCall(ctx, token, http.MethodPatch, "/orders/:id/approve", escape("orders", orderID, "approve"), nil)
}

func (c *Client) CancelOrder(ctx context.Context, token, orderID, reason string) (*order.Order, error) {
	body := struct {
		Reason string `json:"reason"`
	}{reason}
	return c.orderCall(ctx, token, http.MethodPatch, "/orders/:id/cancel", escape("orders", orderID, "cancel"), body)
}

func (c *Client) ShipOrder(ctx context.Context, token, orderID string) (*order.Order, error) {
	return c.orderCall(ctx, token, http.MethodPatch, "/orders/:id/ship", escape("orders", orderID, "ship"), nil)
}

func (c *Client) AssignChefs(ctx context.Context, token, orderID string, items []order.ItemAssignment) (*order.Order, error) {
	body := struct {
		Items []order.ItemAssignment `json:"items"`
	}{items}
	return c.orderCall(ctx, token, http.MethodPatch, "/orders/:id/assign", escape("orders", orderID, "assign"), body)
}

func (c *Client) ConfirmDelivery(ctx context.Context, token, orderID string) (*order.Order, error) {
	return c.orderCall(ctx, token, http.MethodPatch, "/orders/:id/confirm-delivery", escape("orders", orderID, "confirm-delivery"), nil)
}

func (c *Client) UpdateItemStatus(ctx context.Context, token, orderID, itemID string, status order.ItemStatus) (*order.Order, error) {
	body := struct {
		Status order.ItemStatus `json:"status"`
	}{status}
	return c.orderCall(ctx, token, http.MethodPatch, "/orders/:id/items/:itemId/status",
		escape("orders", orderID, "items", itemID, "status"), body)
}

func (c *Client) CreateReturn(ctx context.Context, token, orderID string, req dashboard.ReturnRequest) (*order.Order, error) {
	return c.orderCall(ctx, token, http.MethodPost, "/orders/:id/returns", escape("orders", orderID, "returns"), req)
}

func (c *Client) ApproveReturn(ctx context.Context, token, orderID, returnID, notes string) (*order.Order, error) {
	return c.reviewReturn(ctx, token, orderID, returnID, "approve", notes)
}

func (c *Client) RejectReturn(ctx context.Context, token, orderID, returnID, notes string) (*order.Order, error) {
	return c.reviewReturn(ctx, token, orderID, returnID, "reject", notes)
}

func (c *Client) reviewReturn(ctx context.Context, token, orderID, returnID, verb, notes string) (*order.Order, error) {
	body := struct {
		Notes string `json:"notes,omitempty"`
	}{notes}
	return c.orderCall(ctx, token, http.MethodPatch, "/orders/:id/returns/:returnId/"+verb,
		escape("orders", orderID, "returns", returnID, verb), body)
}

func (c *Client) orderCall(ctx context.Context, token, method, route, path string, body any) (*order.Order, error) {
	var o order.Order
	if err := c.do(ctx, token, method, route, path, nil, body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

var _ dashboard.OrderAPI = (*Client)(nil)
