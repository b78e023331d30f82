package order

import "strings"

// OrderStatus represents the fulfilment status of a branch order
type OrderStatus string

const (
	OrderStatusPending      OrderStatus = "pending"
	OrderStatusApproved     OrderStatus = "approved"
	OrderStatusInProduction OrderStatus = "in_production"
	OrderStatusCompleted    OrderStatus = "completed"
	OrderStatusInTransit    OrderStatus = "in_transit"
	OrderStatusDelivered    OrderStatus = "delivered"
	OrderStatusCancelled    OrderStatus = "cancelled"
)

// AllOrderStatuses lists the statuses in lifecycle order
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusApproved,
	OrderStatusInProduction,
	OrderStatusCompleted,
	OrderStatusInTransit,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusInProduction, OrderStatusCompleted,
		OrderStatusInTransit, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status.
// A shipped order (in_transit or delivered) can no longer be cancelled.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusApproved || target == OrderStatusCancelled
	case OrderStatusApproved:
		return target == OrderStatusInProduction || target == OrderStatusCancelled
	case OrderStatusInProduction:
		return target == OrderStatusCompleted || target == OrderStatusCancelled
	case OrderStatusCompleted:
		return target == OrderStatusInTransit || target == OrderStatusCancelled
	case OrderStatusInTransit:
		return target == OrderStatusDelivered
	case OrderStatusDelivered, OrderStatusCancelled:
		return false
	}
	return false
}

// ItemStatus represents the production status of a single order line
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusAssigned   ItemStatus = "assigned"
	ItemStatusInProgress ItemStatus = "in_progress"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusCancelled  ItemStatus = "cancelled"
)

// IsValid checks if the status is a valid ItemStatus
func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusPending, ItemStatusAssigned, ItemStatusInProgress, ItemStatusCompleted, ItemStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ItemStatus
func (s ItemStatus) String() string {
	return string(s)
}

// RequiresAssignee reports whether an item in this status must have a chef
func (s ItemStatus) RequiresAssignee() bool {
	return s != ItemStatusPending && s != ItemStatusCancelled
}

// CanTransitionTo checks if the item status can transition to the target status
func (s ItemStatus) CanTransitionTo(target ItemStatus) bool {
	switch s {
	case ItemStatusPending:
		return target == ItemStatusAssigned || target == ItemStatusCancelled
	case ItemStatusAssigned:
		return target == ItemStatusInProgress || target == ItemStatusCancelled
	case ItemStatusInProgress:
		return target == ItemStatusCompleted
	case ItemStatusCompleted, ItemStatusCancelled:
		return false
	}
	return false
}

// ReturnStatus represents the review status of a return request
type ReturnStatus string

const (
	ReturnStatusPendingApproval ReturnStatus = "pending_approval"
	ReturnStatusApproved        ReturnStatus = "approved"
	ReturnStatusRejected        ReturnStatus = "rejected"
	ReturnStatusProcessed       ReturnStatus = "processed"
)

// IsValid checks if the status is a valid ReturnStatus
func (s ReturnStatus) IsValid() bool {
	switch s {
	case ReturnStatusPendingApproval, ReturnStatusApproved, ReturnStatusRejected, ReturnStatusProcessed:
		return true
	}
	return false
}

// String returns the string representation of ReturnStatus
func (s ReturnStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the return status can transition to the target status.
// Once approved or rejected a return never goes back to pending_approval.
func (s ReturnStatus) CanTransitionTo(target ReturnStatus) bool {
	switch s {
	case ReturnStatusPendingApproval:
		return target == ReturnStatusApproved || target == ReturnStatusRejected
	case ReturnStatusApproved:
		return target == ReturnStatusProcessed
	case ReturnStatusRejected, ReturnStatusProcessed:
		return false
	}
	return false
}

// CountsAgainstTotal reports whether returned quantities in this status
// reduce the order's adjusted total
func (s ReturnStatus) CountsAgainstTotal() bool {
	return s == ReturnStatusApproved || s == ReturnStatusProcessed
}

// ParseReturnStatus normalizes wire values. Older backend builds emit
// "pending" for returns awaiting review.
func ParseReturnStatus(raw string) (ReturnStatus, bool) {
	s := ReturnStatus(strings.ToLower(strings.TrimSpace(raw)))
	if s == "pending" {
		return ReturnStatusPendingApproval, true
	}
	return s, s.IsValid()
}

// Priority represents how urgently a branch needs the order
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid checks if the priority is known
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank orders priorities for sorting; unknown values sort lowest
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}
