package dashboard

import (
	"context"
	"time"

	"github.com/bakery/orderdesk/internal/domain/order"
)

// OrderQuery scopes the initial order list to what a user may see
type OrderQuery struct {
	BranchID     string
	DepartmentID string
	Status       order.OrderStatus
}

// QueryFor returns the list scope of a user
func QueryFor(u User) OrderQuery {
	switch u.Role {
	case order.RoleBranch:
		return OrderQuery{BranchID: u.BranchID}
	case order.RoleChef:
		return OrderQuery{DepartmentID: u.DepartmentID}
	}
	return OrderQuery{}
}

// ReturnRequest is the body of a return created by a branch
type ReturnRequest struct {
	Items  []order.ReturnItem `json:"items"`
	Reason string             `json:"reason"`
	Notes  string             `json:"notes,omitempty"`
}

// OrderAPI is the remote order service. Every mutating call returns the
// order as the server now holds it.
type OrderAPI interface {
	ListOrders(ctx context.Context, token string, q OrderQuery) ([]*order.Order, error)
	GetOrder(ctx context.Context, token, orderID string) (*order.Order, error)
	ApproveOrder(ctx context.Context, token, orderID string) (*order.Order, error)
	CancelOrder(ctx context.Context, token, orderID, reason string) (*order.Order, error)
	ShipOrder(ctx context.Context, token, orderID string) (*order.Order, error)
	AssignChefs(ctx context.Context, token, orderID string, items []order.ItemAssignment) (*order.Order, error)
	ConfirmDelivery(ctx context.Context, token, orderID string) (*order.Order, error)
	UpdateItemStatus(ctx context.Context, token, orderID, itemID string, status order.ItemStatus) (*order.Order, error)
	CreateReturn(ctx context.Context, token, orderID string, req ReturnRequest) (*order.Order, error)
	ApproveReturn(ctx context.Context, token, orderID, returnID, notes string) (*order.Order, error)
	RejectReturn(ctx context.Context, token, orderID, returnID, notes string) (*order.Order, error)
}

// ReferenceData serves the read-only lookups used by assignment forms
type ReferenceData interface {
	ListChefs(ctx context.Context, token, departmentID string) ([]order.Chef, error)
	ListBranches(ctx context.Context, token string) ([]order.Branch, error)
	ListDepartments(ctx context.Context, token string) ([]order.Department, error)
}

// Snapshot is the persisted warm-start state of a user's dashboard
type Snapshot struct {
	UserID  string
	Orders  []*order.Order
	View    View
	SavedAt time.Time
}

// SnapshotStore persists snapshots. Load returns nil, nil when none exists.
type SnapshotStore interface {
	Load(ctx context.Context, userID string) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Action outcomes recorded in the audit log and metrics
const (
	OutcomeSucceeded = "succeeded"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// ActionRecord is one audited user action
type ActionRecord struct {
	UserID    string
	Role      order.Role
	Action    order.Action
	OrderID   string
	TargetID  string
	Outcome   string
	ErrorCode string
	Duration  time.Duration
	At        time.Time
}

// ActionLog is the append-only audit of submitted actions
type ActionLog interface {
	Record(ctx context.Context, rec ActionRecord) error
}

// Metrics receives session and action measurements
type Metrics interface {
	ActionCompleted(ctx context.Context, action order.Action, outcome string, d time.Duration)
	SessionsActive(ctx context.Context, n int)
}

// Feed starts the realtime event source of a session. The returned stop
// func blocks until the source has shut down.
type Feed interface {
	Start(ctx context.Context, sess *Session) (stop func(), err error)
}

type noopMetrics struct{}

func (noopMetrics) ActionCompleted(context.Context, order.Action, string, time.Duration) {}
func (noopMetrics) SessionsActive(context.Context, int)                                  {}
