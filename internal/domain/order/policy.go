package order

import (
	"fmt"

	"github.com/bakery/orderdesk/internal/domain/shared"
)

// Role is the dashboard role of a user
type Role string

const (
	RoleBranch     Role = "branch"
	RoleProduction Role = "production"
	RoleChef       Role = "chef"
	RoleAdmin      Role = "admin"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleBranch, RoleProduction, RoleChef, RoleAdmin:
		return true
	}
	return false
}

// IsManager reports whether the role manages the production lifecycle
func (r Role) IsManager() bool {
	return r == RoleProduction || r == RoleAdmin
}

// Actor identifies who is acting on an order
type Actor struct {
	UserID       string
	Role         Role
	BranchID     string
	DepartmentID string
}

// Action is a user-facing operation the dashboard can offer on an order
type Action string

const (
	ActionApprove         Action = "approve"
	ActionCancel          Action = "cancel"
	ActionAssignChefs     Action = "assignChefs"
	ActionShip            Action = "ship"
	ActionConfirmDelivery Action = "confirmDelivery"
	ActionRequestReturn   Action = "requestReturn"
	ActionApproveReturn   Action = "approveReturn"
	ActionRejectReturn    Action = "rejectReturn"
	ActionStartItem       Action = "startItem"
	ActionCompleteItem    Action = "completeItem"
)

// AvailableAction is an action offered for an order, optionally scoped to
// one item or one return
type AvailableAction struct {
	Action   Action `json:"action"`
	ItemID   string `json:"itemId,omitempty"`
	ReturnID string `json:"returnId,omitempty"`
}

// ====================================================================
// Visibility
// ====================================================================

// CanView reports whether the actor's room scope covers the order
func CanView(a Actor, o *Order) bool {
	switch a.Role {
	case RoleAdmin, RoleProduction:
		return true
	case RoleBranch:
		return a.BranchID != "" && o.Branch.ID == a.BranchID
	case RoleChef:
		for _, item := range o.Items {
			if item.IsAssigned() && item.AssignedTo.UserID == a.UserID {
				return true
			}
			if a.DepartmentID != "" && item.Product.Department.ID == a.DepartmentID {
				return true
			}
		}
	}
	return false
}

// ====================================================================
// Order transitions
// ====================================================================

// CanTransition reports whether the actor may move the order to target.
// Implicit transitions (approved -> in_production, in_production -> completed)
// are never available to a role.
func CanTransition(a Actor, o *Order, target OrderStatus) bool {
	if !o.Status.CanTransitionTo(target) {
		return false
	}
	switch target {
	case OrderStatusApproved, OrderStatusCancelled, OrderStatusInTransit:
		return a.Role.IsManager()
	case OrderStatusDelivered:
		return a.Role == RoleBranch && a.BranchID == o.Branch.ID
	}
	return false
}

// AuthorizeTransition returns an error when the actor may not move the order to target
func AuthorizeTransition(a Actor, o *Order, target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError(ErrIllegalTransition.Code,
			fmt.Sprintf("Cannot move order %s from %s to %s", o.OrderNumber, o.Status, target))
	}
	if !CanTransition(a, o, target) {
		return shared.NewDomainError(shared.ErrForbidden.Code,
			fmt.Sprintf("Role %s cannot move order %s to %s", a.Role, o.OrderNumber, target))
	}
	return nil
}

// ====================================================================
// Item transitions
// ====================================================================

// AuthorizeItemTransition checks a chef moving one of their own items forward
func AuthorizeItemTransition(a Actor, o *Order, itemID string, target ItemStatus) error {
	item, ok := o.FindItem(itemID)
	if !ok {
		return fmt.Errorf("item %s: %w", itemID, ErrItemNotFound)
	}
	if !item.Status.CanTransitionTo(target) {
		return shared.NewDomainError(ErrIllegalTransition.Code,
			fmt.Sprintf("Cannot move item from %s to %s", item.Status, target))
	}
	if target != ItemStatusInProgress && target != ItemStatusCompleted {
		return shared.NewDomainError(shared.ErrForbidden.Code, "Chefs may only start or complete items")
	}
	if a.Role != RoleChef || !item.IsAssigned() || item.AssignedTo.UserID != a.UserID {
		return shared.NewDomainError(shared.ErrForbidden.Code, "Only the assigned chef can update this item")
	}
	if o.Status != OrderStatusInProduction {
		return shared.NewDomainError(ErrIllegalTransition.Code,
			fmt.Sprintf("Items can only be worked on while the order is %s", OrderStatusInProduction))
	}
	return nil
}

// AuthorizeAssignment checks that the actor may assign chefs on the order
func AuthorizeAssignment(a Actor, o *Order) error {
	if !a.Role.IsManager() {
		return shared.NewDomainError(shared.ErrForbidden.Code, "Only production or admin can assign chefs")
	}
	if o.Status != OrderStatusApproved {
		return shared.NewDomainError(ErrIllegalTransition.Code,
			fmt.Sprintf("Chefs can only be assigned while the order is %s", OrderStatusApproved))
	}
	if len(o.UnassignedItems()) == 0 {
		return shared.NewDomainError(ErrIllegalTransition.Code, "All items are already assigned")
	}
	return nil
}

// ====================================================================
// Returns
// ====================================================================

// AuthorizeReturnRequest checks that the actor may request a return on the order
func AuthorizeReturnRequest(a Actor, o *Order) error {
	if a.Role != RoleBranch || a.BranchID != o.Branch.ID {
		return shared.NewDomainError(shared.ErrForbidden.Code, "Only the ordering branch can request a return")
	}
	if o.Status != OrderStatusDelivered {
		return shared.NewDomainError(ErrIllegalTransition.Code, "Returns can only be requested for delivered orders")
	}
	return nil
}

// AuthorizeReturnReview checks that the actor may approve or reject the return
func AuthorizeReturnReview(a Actor, o *Order, returnID string, target ReturnStatus) error {
	ret, ok := o.FindReturn(returnID)
	if !ok {
		return fmt.Errorf("return %s: %w", returnID, ErrReturnNotFound)
	}
	if !a.Role.IsManager() {
		return shared.NewDomainError(shared.ErrForbidden.Code, "Only production or admin can review returns")
	}
	if ret.Status != ReturnStatusPendingApproval || !ret.Status.CanTransitionTo(target) {
		return shared.NewDomainError(ErrIllegalTransition.Code,
			fmt.Sprintf("Return %s is %s and cannot be reviewed", returnID, ret.Status))
	}
	return nil
}

// ====================================================================
// Offered actions
// ====================================================================

// AvailableActions lists what the actor can do with the order right now
func AvailableActions(a Actor, o *Order) []AvailableAction {
	var out []AvailableAction
	if !CanView(a, o) {
		return out
	}
	if !o.Status.IsTerminal() {
		out = append(out, lifecycleActions(a, o)...)
	}
	if AuthorizeReturnRequest(a, o) == nil && hasReturnableQuantity(o) {
		out = append(out, AvailableAction{Action: ActionRequestReturn})
	}
	for _, ret := range o.Returns {
		if AuthorizeReturnReview(a, o, ret.ReturnID, ReturnStatusApproved) == nil {
			out = append(out,
				AvailableAction{Action: ActionApproveReturn, ReturnID: ret.ReturnID},
				AvailableAction{Action: ActionRejectReturn, ReturnID: ret.ReturnID},
			)
		}
	}
	return out
}

// lifecycleActions are the status, assignment and item moves of an order
// that is still in progress
func lifecycleActions(a Actor, o *Order) []AvailableAction {
	var out []AvailableAction
	if CanTransition(a, o, OrderStatusApproved) {
		out = append(out, AvailableAction{Action: ActionApprove})
	}
	if AuthorizeAssignment(a, o) == nil {
		out = append(out, AvailableAction{Action: ActionAssignChefs})
	}
	if CanTransition(a, o, OrderStatusInTransit) {
		out = append(out, AvailableAction{Action: ActionShip})
	}
	if CanTransition(a, o, OrderStatusDelivered) {
		out = append(out, AvailableAction{Action: ActionConfirmDelivery})
	}
	if CanTransition(a, o, OrderStatusCancelled) {
		out = append(out, AvailableAction{Action: ActionCancel})
	}
	for _, item := range o.Items {
		if AuthorizeItemTransition(a, o, item.ID, ItemStatusInProgress) == nil {
			out = append(out, AvailableAction{Action: ActionStartItem, ItemID: item.ID})
		}
		if AuthorizeItemTransition(a, o, item.ID, ItemStatusCompleted) == nil {
			out = append(out, AvailableAction{Action: ActionCompleteItem, ItemID: item.ID})
		}
	}
	return out
}

func hasReturnableQuantity(o *Order) bool {
	for _, item := range o.Items {
		if item.Status != ItemStatusCancelled && RemainingReturnable(o, item.Product.ID) > 0 {
			return true
		}
	}
	return false
}
