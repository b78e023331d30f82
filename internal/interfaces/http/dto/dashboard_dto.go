package dto

import (
	"time"

	"github.com/bakery/orderdesk/internal/application/dashboard"
	"github.com/bakery/orderdesk/internal/domain/order"
)

// ViewRequest changes the filters, sort and page of the session's order list.
// Absent fields are left unchanged; an empty string clears a filter. The
// form names are the query parameters of the order list endpoint.
type ViewRequest struct {
	FilterStatus     *string `json:"filterStatus" form:"status"`
	FilterBranch     *string `json:"filterBranch" form:"branch"`
	FilterPriority   *string `json:"filterPriority" form:"priority" binding:"omitempty,oneof=low medium high urgent"`
	FilterDepartment *string `json:"filterDepartment" form:"department"`
	SearchQuery      *string `json:"searchQuery" form:"q"`
	SortBy           *string `json:"sortBy" form:"sort" binding:"omitempty,oneof=createdAt orderNumber priority totalAmount status branch"`
	SortDirection    *string `json:"sortDirection" form:"direction" binding:"omitempty,oneof=asc desc"`
	PageSize         *int    `json:"pageSize" form:"page_size" binding:"omitempty,min=1,max=100"`
	Page             *int    `json:"page" form:"page" binding:"omitempty,min=1"`
}

// CancelRequest carries the cancellation reason
type CancelRequest struct {
	Reason string `json:"reason"`
}

// AssignmentRequest assigns one item to a chef
type AssignmentRequest struct {
	ItemID string `json:"itemId" binding:"required"`
	ChefID string `json:"chefId" binding:"required"`
}

// AssignRequest assigns chefs to items of an order
type AssignRequest struct {
	Items []AssignmentRequest `json:"items" binding:"required,min=1,dive"`
}

// ItemStatusRequest moves an item forward. Chefs only ever start or complete.
type ItemStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=in_progress completed"`
}

// ReturnItemRequest is one line of a return request
type ReturnItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
	Notes     string `json:"notes,omitempty"`
}

// CreateReturnRequest opens a return on a delivered order
type CreateReturnRequest struct {
	Items  []ReturnItemRequest `json:"items"`
	Reason string              `json:"reason"`
	Notes  string              `json:"notes,omitempty"`
}

// ReviewReturnRequest carries the reviewer's notes
type ReviewReturnRequest struct {
	Notes string `json:"notes"`
}

// SessionResponse describes an open dashboard session
type SessionResponse struct {
	UserID          string         `json:"userId"`
	Name            string         `json:"name"`
	Role            order.Role     `json:"role"`
	RoleLabel       string         `json:"roleLabel"`
	BranchID        string         `json:"branchId,omitempty"`
	DepartmentID    string         `json:"departmentId,omitempty"`
	Locale          order.Locale   `json:"locale"`
	Orders          int            `json:"orders"`
	SocketConnected bool           `json:"socketConnected"`
	Version         uint64         `json:"version"`
	View            dashboard.View `json:"view"`
}

// OrderDetailResponse is one order with what the user may do with it
type OrderDetailResponse struct {
	Order   order.OrderView         `json:"order"`
	Actions []order.AvailableAction `json:"actions"`
	Stale   bool                    `json:"stale,omitempty"`
}

// ChefResponse is one entry of the assignment picker
type ChefResponse struct {
	UserID         string `json:"userId"`
	Name           string `json:"name"`
	DepartmentID   string `json:"departmentId"`
	DepartmentName string `json:"departmentName"`
}

// AuditEntryResponse is one recorded user action on an order
type AuditEntryResponse struct {
	UserID     string    `json:"userId"`
	Role       string    `json:"role"`
	RoleLabel  string    `json:"roleLabel"`
	Action     string    `json:"action"`
	TargetID   string    `json:"targetId,omitempty"`
	Outcome    string    `json:"outcome"`
	ErrorCode  string    `json:"errorCode,omitempty"`
	DurationMs int64     `json:"durationMs"`
	At         time.Time `json:"at"`
}

// HealthResponse reports service and dependency health
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Uptime   string            `json:"uptime"`
	Sessions int               `json:"sessions"`
	Checks   map[string]string `json:"checks"`
}

// OrderListItem is one row of the order list
type OrderListItem struct {
	order.OrderView
	Stale bool `json:"stale,omitempty"`
}

// BranchResponse is a branch filter entry
type BranchResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DepartmentResponse is a department filter entry
type DepartmentResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
