package dashboard

import (
	"time"

	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/shopspring/decimal"
)

// Action is a store mutation. Every change to a session's orders or view
// goes through Store.Dispatch with one of the types below.
type Action interface {
	ActionType() string
}

// SetOrders replaces the whole collection
type SetOrders struct {
	Orders []*order.Order
}

// AddOrder inserts an order or replaces the entry with the same id
type AddOrder struct {
	Order *order.Order
}

// UpdateOrderStatus patches an order's status. With Order set the order is
// replaced wholesale instead.
type UpdateOrderStatus struct {
	OrderID   string
	Status    order.OrderStatus
	Order     *order.Order
	ChangedBy string
	Notes     string
	At        time.Time
}

// UpdateItemStatus patches one item's status
type UpdateItemStatus struct {
	OrderID string
	ItemID  string
	Status  order.ItemStatus
	At      time.Time
}

// TaskAssigned merges chef assignments into an order's items
type TaskAssigned struct {
	OrderID string
	Items   []order.ItemAssignment
	At      time.Time
}

// AddReturn appends a return to an order
type AddReturn struct {
	OrderID string
	Return  order.OrderReturn
}

// UpdateReturnStatus moves one return forward
type UpdateReturnStatus struct {
	OrderID       string
	ReturnID      string
	Status        order.ReturnStatus
	ReviewNotes   string
	AdjustedTotal *decimal.Decimal
	At            time.Time
}

// Filter, search, sort and pagination setters
type (
	SetFilterStatus     struct{ Status order.OrderStatus }
	SetFilterBranch     struct{ BranchID string }
	SetFilterPriority   struct{ Priority order.Priority }
	SetFilterDepartment struct{ DepartmentID string }
	SetSearchQuery      struct{ Query string }
	SetSortBy           struct{ Field SortField }
	SetSortDirection    struct{ Direction SortDirection }
	SetPageSize         struct{ Size int }
	SetPage             struct{ Page int }
)

// SetSubmitting adds an order to the in-flight set
type SetSubmitting struct {
	OrderID string
}

// ReleaseSubmitting removes an order from the in-flight set
type ReleaseSubmitting struct {
	OrderID string
}

// SetSocketConnected records the realtime connection state
type SetSocketConnected struct {
	Connected bool
}

// MarkStale flags an order for refetch
type MarkStale struct {
	OrderID string
	Reason  string
}

// ClearStale removes the refetch flag
type ClearStale struct {
	OrderID string
}

func (SetOrders) ActionType() string           { return "setOrders" }
func (AddOrder) ActionType() string            { return "addOrder" }
func (UpdateOrderStatus) ActionType() string   { return "updateOrderStatus" }
func (UpdateItemStatus) ActionType() string    { return "updateItemStatus" }
func (TaskAssigned) ActionType() string        { return "taskAssigned" }
func (AddReturn) ActionType() string           { return "addReturn" }
func (UpdateReturnStatus) ActionType() string  { return "updateReturnStatus" }
func (SetFilterStatus) ActionType() string     { return "setFilterStatus" }
func (SetFilterBranch) ActionType() string     { return "setFilterBranch" }
func (SetFilterPriority) ActionType() string   { return "setFilterPriority" }
func (SetFilterDepartment) ActionType() string { return "setFilterDepartment" }
func (SetSearchQuery) ActionType() string      { return "setSearchQuery" }
func (SetSortBy) ActionType() string           { return "setSortBy" }
func (SetSortDirection) ActionType() string    { return "setSortDirection" }
func (SetPageSize) ActionType() string         { return "setPageSize" }
func (SetPage) ActionType() string             { return "setPage" }
func (SetSubmitting) ActionType() string       { return "setSubmitting" }
func (ReleaseSubmitting) ActionType() string   { return "releaseSubmitting" }
func (SetSocketConnected) ActionType() string  { return "setSocketConnected" }
func (MarkStale) ActionType() string           { return "markStale" }
func (ClearStale) ActionType() string          { return "clearStale" }

// orderAction is implemented by actions that target a single order
type orderAction interface {
	targetOrder() string
}

func (a AddOrder) targetOrder() string {
	if a.Order == nil {
		return ""
	}
	return a.Order.ID
}

func (a UpdateOrderStatus) targetOrder() string  { return a.OrderID }
func (a UpdateItemStatus) targetOrder() string   { return a.OrderID }
func (a TaskAssigned) targetOrder() string       { return a.OrderID }
func (a AddReturn) targetOrder() string          { return a.OrderID }
func (a UpdateReturnStatus) targetOrder() string { return a.OrderID }
func (a MarkStale) targetOrder() string          { return a.OrderID }
func (a ClearStale) targetOrder() string         { return a.OrderID }

// TargetOrder returns the order an action touches, or "" for view actions
func TargetOrder(a Action) string {
	if oa, ok := a.(orderAction); ok {
		return oa.targetOrder()
	}
	return ""
}
