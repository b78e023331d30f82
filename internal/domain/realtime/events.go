// Package realtime defines the closed set of events exchanged with the order
// socket server. Every inbound frame decodes to exactly one Event type or is
// rejected at the boundary.
package realtime

import (
	"encoding/json"

	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeOrder is the aggregate type of every realtime event
const AggregateTypeOrder = "Order"

// EventName is the wire name of a socket event
type EventName string

// Inbound events
const (
	EventNewOrderFromBranch     EventName = "newOrderFromBranch"
	EventOrderApprovedForBranch EventName = "orderApprovedForBranch"
	EventTaskAssigned           EventName = "taskAssigned"
	EventTaskCompleted          EventName = "taskCompleted"
	EventOrderCompletedByChefs  EventName = "orderCompletedByChefs"
	EventOrderInTransitToBranch EventName = "orderInTransitToBranch"
	EventBranchConfirmedReceipt EventName = "branchConfirmedReceipt"
	EventOrderStatusUpdated     EventName = "orderStatusUpdated"
	EventItemStatusUpdated      EventName = "itemStatusUpdated"
	EventReturnStatusUpdated    EventName = "returnStatusUpdated"
	EventMissingAssignments     EventName = "missingAssignments"
	EventReturnCreated          EventName = "returnCreated"
)

// Outbound events
const (
	EventJoinRoom EventName = "joinRoom"
)

// InboundEvents lists every event the socket server may push
var InboundEvents = []EventName{
	EventNewOrderFromBranch,
	EventOrderApprovedForBranch,
	EventTaskAssigned,
	EventTaskCompleted,
	EventOrderCompletedByChefs,
	EventOrderInTransitToBranch,
	EventBranchConfirmedReceipt,
	EventOrderStatusUpdated,
	EventItemStatusUpdated,
	EventReturnStatusUpdated,
	EventMissingAssignments,
	EventReturnCreated,
}

// EventTypes returns the inbound event names as bus event types
func EventTypes() []string {
	out := make([]string, len(InboundEvents))
	for i, n := range InboundEvents {
		out[i] = string(n)
	}
	return out
}

// Event is implemented only by the types in this file
type Event interface {
	shared.DomainEvent
	Name() EventName
	OrderID() string
	// FullOrder returns the authoritative order carried by the event, if any
	FullOrder() *order.Order
	stamp(base shared.BaseDomainEvent)
}

// OrderRef is the part every inbound payload shares
type OrderRef struct {
	shared.BaseDomainEvent `json:"-"`

	ID    string       `json:"orderId" validate:"required"`
	Order *order.Order `json:"order,omitempty"`
}

// OrderID returns the referenced order id
func (r *OrderRef) OrderID() string { return r.ID }

// FullOrder returns the carried order snapshot, or nil for patch events
func (r *OrderRef) FullOrder() *order.Order { return r.Order }

func (r *OrderRef) stamp(base shared.BaseDomainEvent) { r.BaseDomainEvent = base }

// NewOrderFromBranch announces an order placed by a branch. The payload is
// either {"order": {...}} or the order object itself.
type NewOrderFromBranch struct {
	OrderRef
}

func (e *NewOrderFromBranch) Name() EventName { return EventNewOrderFromBranch }

// UnmarshalJSON accepts both payload shapes
func (e *NewOrderFromBranch) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Order *order.Order `json:"order"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Order == nil {
		var bare order.Order
		if err := json.Unmarshal(data, &bare); err != nil {
			return err
		}
		if bare.ID != "" {
			wrapped.Order = &bare
		}
	}
	e.Order = wrapped.Order
	if e.Order != nil {
		e.ID = e.Order.ID
	}
	return nil
}

// OrderApprovedForBranch tells a branch its order was approved
type OrderApprovedForBranch struct {
	OrderRef
	ChangedBy string `json:"changedBy,omitempty"`
}

func (e *OrderApprovedForBranch) Name() EventName { return EventOrderApprovedForBranch }

// TaskAssigned carries the items whose chef assignment changed
type TaskAssigned struct {
	OrderRef
	Items []order.ItemAssignment `json:"items" validate:"required,min=1,dive"`
}

func (e *TaskAssigned) Name() EventName { return EventTaskAssigned }

// TaskCompleted reports a chef finishing one item
type TaskCompleted struct {
	OrderRef
	ItemID string `json:"itemId" validate:"required"`
	ChefID string `json:"chefId,omitempty"`
}

func (e *TaskCompleted) Name() EventName { return EventTaskCompleted }

// OrderCompletedByChefs reports that every item of the order is produced
type OrderCompletedByChefs struct {
	OrderRef
}

func (e *OrderCompletedByChefs) Name() EventName { return EventOrderCompletedByChefs }

// OrderInTransitToBranch reports that the order was shipped
type OrderInTransitToBranch struct {
	OrderRef
	ChangedBy string `json:"changedBy,omitempty"`
}

func (e *OrderInTransitToBranch) Name() EventName { return EventOrderInTransitToBranch }

// BranchConfirmedReceipt reports that the branch received the order
type BranchConfirmedReceipt struct {
	OrderRef
	ChangedBy string `json:"changedBy,omitempty"`
}

func (e *BranchConfirmedReceipt) Name() EventName { return EventBranchConfirmedReceipt }

// OrderStatusUpdated is the generic order status change
type OrderStatusUpdated struct {
	OrderRef
	Status    order.OrderStatus `json:"status" validate:"required,order_status"`
	ChangedBy string            `json:"changedBy,omitempty"`
	Notes     string            `json:"notes,omitempty"`
}

func (e *OrderStatusUpdated) Name() EventName { return EventOrderStatusUpdated }

// ItemStatusUpdated is the generic item status change
type ItemStatusUpdated struct {
	OrderRef
	ItemID string           `json:"itemId" validate:"required"`
	Status order.ItemStatus `json:"status" validate:"required,item_status"`
}

func (e *ItemStatusUpdated) Name() EventName { return EventItemStatusUpdated }

// ReturnStatusUpdated reports a review decision on a return. AdjustedTotal,
// when present, is the server's authoritative value.
type ReturnStatusUpdated struct {
	OrderRef
	ReturnID      string             `json:"returnId" validate:"required"`
	Status        order.ReturnStatus `json:"status" validate:"required,return_status"`
	ReviewNotes   string             `json:"reviewNotes,omitempty"`
	AdjustedTotal *decimal.Decimal   `json:"adjustedTotal,omitempty"`
}

func (e *ReturnStatusUpdated) Name() EventName { return EventReturnStatusUpdated }

func (e *ReturnStatusUpdated) normalize() {
	if s, ok := order.ParseReturnStatus(string(e.Status)); ok {
		e.Status = s
	}
}

// MissingAssignments warns production that an approved order has items without a chef
type MissingAssignments struct {
	OrderRef
	OrderNumber string   `json:"orderNumber,omitempty"`
	ItemIDs     []string `json:"itemIds,omitempty"`
	Message     string   `json:"message,omitempty"`
}

func (e *MissingAssignments) Name() EventName { return EventMissingAssignments }

// ReturnCreated announces a new return request on an order
type ReturnCreated struct {
	OrderRef
	Return order.OrderReturn `json:"returnData"`
}

func (e *ReturnCreated) Name() EventName { return EventReturnCreated }

func (e *ReturnCreated) normalize() {
	if s, ok := order.ParseReturnStatus(string(e.Return.Status)); ok {
		e.Return.Status = s
	}
	if e.Return.Status == "" {
		e.Return.Status = order.ReturnStatusPendingApproval
	}
}

// JoinRoom is emitted after every (re)connect to subscribe to the user's scope
type JoinRoom struct {
	Role         order.Role `json:"role" validate:"required"`
	UserID       string     `json:"userId" validate:"required"`
	BranchID     string     `json:"branchId,omitempty"`
	DepartmentID string     `json:"departmentId,omitempty"`
}

// NewJoinRoom builds the join payload for an actor
func NewJoinRoom(a order.Actor) JoinRoom {
	return JoinRoom{
		Role:         a.Role,
		UserID:       a.UserID,
		BranchID:     a.BranchID,
		DepartmentID: a.DepartmentID,
	}
}
