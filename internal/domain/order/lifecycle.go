package order

import (
	"fmt"
	"time"

	"github.com/bakery/orderdesk/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SystemActorName is recorded as changedBy for implicit transitions
const SystemActorName = "system"

// Lifecycle errors. Store mutations turn these into no-ops that mark the order stale.
var (
	ErrIllegalTransition = shared.NewDomainError("INVALID_STATE", "Status transition is not allowed")
	ErrAssigneeRequired  = shared.NewDomainError("ASSIGNEE_REQUIRED", "Item must be assigned to a chef before leaving pending")
	ErrDuplicateReturn   = shared.NewDomainError("DUPLICATE_RETURN", "Return already exists on this order")
	ErrItemNotFound      = shared.NewDomainError("ITEM_NOT_FOUND", "Item not found on this order")
	ErrReturnNotFound    = shared.NewDomainError("RETURN_NOT_FOUND", "Return not found on this order")
)

// TransitionTo moves the order to target and appends a history entry.
// Transitioning to the current status is a no-op.
func (o *Order) TransitionTo(target OrderStatus, changedBy, notes string, at time.Time) error {
	if o.Status == target {
		return nil
	}
	if !o.Status.CanTransitionTo(target) {
		return fmt.Errorf("order %s %s -> %s: %w", o.ID, o.Status, target, ErrIllegalTransition)
	}
	o.Status = target
	o.StatusHistory = append(o.StatusHistory, StatusHistoryEntry{
		Status:    target,
		ChangedBy: changedBy,
		ChangedAt: at,
		Notes:     notes,
	})
	return nil
}

// AdvanceImplicit applies the transitions no role triggers directly:
// approved -> in_production once every live item is assigned, and
// in_production -> completed once every live item is completed.
// It returns true when the status changed.
func (o *Order) AdvanceImplicit(at time.Time) bool {
	changed := false
	if o.Status == OrderStatusApproved && o.AllItemsAssigned() {
		_ = o.TransitionTo(OrderStatusInProduction, SystemActorName, "", at)
		changed = true
	}
	if o.Status == OrderStatusInProduction && o.AllItemsCompleted() {
		_ = o.TransitionTo(OrderStatusCompleted, SystemActorName, "", at)
		changed = true
	}
	return changed
}

// ApplyItemStatus moves one item along the item sub-machine
func (o *Order) ApplyItemStatus(itemID string, target ItemStatus, at time.Time) error {
	item, ok := o.FindItem(itemID)
	if !ok {
		return fmt.Errorf("item %s: %w", itemID, ErrItemNotFound)
	}
	if item.Status == target {
		return nil
	}
	if !item.Status.CanTransitionTo(target) {
		return fmt.Errorf("item %s %s -> %s: %w", itemID, item.Status, target, ErrIllegalTransition)
	}
	if target.RequiresAssignee() && !item.IsAssigned() {
		return fmt.Errorf("item %s: %w", itemID, ErrAssigneeRequired)
	}
	setItemStatus(item, target, at)
	o.AdvanceImplicit(at)
	return nil
}

func setItemStatus(item *OrderItem, target ItemStatus, at time.Time) {
	item.Status = target
	switch target {
	case ItemStatusInProgress:
		if item.StartedAt == nil {
			t := at
			item.StartedAt = &t
		}
	case ItemStatusCompleted:
		if item.CompletedAt == nil {
			t := at
			item.CompletedAt = &t
		}
	}
}

// ItemAssignment is a partial item update from a chef-assignment round trip
type ItemAssignment struct {
	ItemID     string     `json:"_id" validate:"required"`
	AssignedTo *Chef      `json:"assignedTo,omitempty"`
	Status     ItemStatus `json:"status,omitempty"`
}

// ApplyAssignments merges assignments by item id. Applying the same
// assignments twice yields the same state. Unknown item ids are skipped.
// The whole batch is rejected if any item would break the assignment invariant.
func (o *Order) ApplyAssignments(assignments []ItemAssignment, at time.Time) error {
	for _, a := range assignments {
		item, ok := o.FindItem(a.ItemID)
		if !ok {
			continue
		}
		if a.AssignedTo != nil {
			chef := *a.AssignedTo
			item.AssignedTo = &chef
		}
		target := a.Status
		if target == "" && item.Status == ItemStatusPending && item.IsAssigned() {
			target = ItemStatusAssigned
		}
		if target != "" && target != item.Status {
			if !item.Status.CanTransitionTo(target) {
				return fmt.Errorf("item %s %s -> %s: %w", item.ID, item.Status, target, ErrIllegalTransition)
			}
			setItemStatus(item, target, at)
		}
		if item.Status.RequiresAssignee() && !item.IsAssigned() {
			return fmt.Errorf("item %s: %w", item.ID, ErrAssigneeRequired)
		}
	}
	o.AdvanceImplicit(at)
	return nil
}

// AddReturn appends a return. A return id already present is rejected.
func (o *Order) AddReturn(ret OrderReturn) error {
	if _, exists := o.FindReturn(ret.ReturnID); exists {
		return fmt.Errorf("return %s: %w", ret.ReturnID, ErrDuplicateReturn)
	}
	if ret.Status == "" {
		ret.Status = ReturnStatusPendingApproval
	}
	o.Returns = append(o.Returns, ret)
	if ret.Status.CountsAgainstTotal() {
		o.RecomputeAdjustedTotal()
	}
	return nil
}

// SetReturnStatus moves one return forward. Setting the current status again
// is a no-op, so a repeated approval never subtracts twice.
func (o *Order) SetReturnStatus(returnID string, target ReturnStatus, reviewNotes string, at time.Time) error {
	ret, ok := o.FindReturn(returnID)
	if !ok {
		return fmt.Errorf("return %s: %w", returnID, ErrReturnNotFound)
	}
	if ret.Status == target {
		return nil
	}
	if !ret.Status.CanTransitionTo(target) {
		return fmt.Errorf("return %s %s -> %s: %w", returnID, ret.Status, target, ErrIllegalTransition)
	}
	ret.Status = target
	if reviewNotes != "" {
		ret.ReviewNotes = reviewNotes
	}
	if target == ReturnStatusApproved || target == ReturnStatusRejected {
		t := at
		ret.ReviewedAt = &t
	}
	if target.CountsAgainstTotal() {
		o.RecomputeAdjustedTotal()
	}
	return nil
}

// RecomputeAdjustedTotal replaces any carried adjusted total with one
// computed from scratch over the order's counted returns
func (o *Order) RecomputeAdjustedTotal() {
	v := computeAdjustedTotal(o)
	o.AdjustedTotal = &v
}

// ApplyAuthoritativeAdjustedTotal stores a server supplied adjusted total,
// clamped to [0, totalAmount]
func (o *Order) ApplyAuthoritativeAdjustedTotal(v decimal.Decimal) {
	c := clampTotal(v, o.TotalAmount)
	o.AdjustedTotal = &c
}
