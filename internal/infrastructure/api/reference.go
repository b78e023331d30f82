package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bakery/orderdesk/internal/application/dashboard"
	"github.com/bakery/orderdesk/internal/domain/order"
)

// ListChefs returns the chefs of a department, or every chef when empty
func (c *Client) ListChefs(ctx context.Context, token, departmentID string) ([]order.Chef, error) {
	var query url.Values
	if departmentID != "" {
		query = url.Values{"department": {departmentID}}
	}
	var chefs []order.Chef
	if err := c.do(ctx, token, http.MethodGet, "/chefs", "/chefs", query, nil, &chefs); err != nil {
		return nil, err
	}
	return chefs, nil
}

func (c *Client) ListBranches(ctx context.Context, token string) ([]order.Branch, error) {
	var branches []order.Branch
	if err := c.do(ctx, token, http.MethodGet, "/branches", "/branches", nil, nil, &branches); err != nil {
		return nil, err
	}
	return branches, nil
}

func (c *Client) ListDepartments(ctx context.Context, token string) ([]order.Department, error) {
	var departments []order.Department
	if err := c.do(ctx, token, http.MethodGet, "/departments", "/departments", nil, nil, &departments); err != nil {
		return nil, err
	}
	return departments, nil
}

var _ dashboard.ReferenceData = (*Client)(nil)
