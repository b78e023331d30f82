// Package realtime keeps dashboard sessions in sync with the order events
// pushed by the backend.
package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/bakery/orderdesk/internal/application/dashboard"
	"github.com/bakery/orderdesk/internal/domain/order"
	events "github.com/bakery/orderdesk/internal/domain/realtime"
	"github.com/bakery/orderdesk/internal/domain/shared"
	"go.uber.org/zap"
)

// Event outcomes reported to Metrics
const (
	OutcomeApplied   = "applied"
	OutcomeIgnored   = "ignored"
	OutcomeStale     = "stale"
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
)

// Metrics receives event pipeline measurements
type Metrics interface {
	EventReceived(ctx context.Context, event, outcome string)
	SourceReconnected(ctx context.Context, transport string)
}

type noopMetrics struct{}

func (noopMetrics) EventReceived(context.Context, string, string) {}
func (noopMetrics) SourceReconnected(context.Context, string)     {}

const defaultRefetchTimeout = 15 * time.Second

// Reconciler applies pushed events to one session's store. Events carrying
// a full order replace it; patches go through the state machine, and a
// conflicting patch flags the order for refetch.
type Reconciler struct {
	sess           *dashboard.Session
	logger         *zap.Logger
	metrics        Metrics
	refetch        chan struct{}
	refetchTimeout time.Duration
}

// NewReconciler creates a reconciler for a session
func NewReconciler(sess *dashboard.Session, logger *zap.Logger, metrics Metrics) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Reconciler{
		sess:           sess,
		logger:         logger,
		metrics:        metrics,
		refetch:        make(chan struct{}, 1),
		refetchTimeout: defaultRefetchTimeout,
	}
}

// EventTypes returns every inbound event name
func (r *Reconciler) EventTypes() []string {
	return events.EventTypes()
}

// Handle applies one event. Rejected or irrelevant events are not errors.
func (r *Reconciler) Handle(ctx context.Context, e shared.DomainEvent) error {
	ev, ok := e.(events.Event)
	if !ok {
		return fmt.Errorf("reconciler: unexpected event type %T", e)
	}

	res, toast := r.apply(ev)

	outcome := OutcomeIgnored
	switch {
	case res.MarkedStale:
		outcome = OutcomeStale
	case res.Applied:
		outcome = OutcomeApplied
	case res.Err != nil:
		outcome = OutcomeRejected
	}
	r.metrics.EventReceived(ctx, string(ev.Name()), outcome)

	if !res.Applied {
		r.logger.Debug("Event not applied",
			zap.String("event", string(ev.Name())),
			zap.String("order_id", ev.OrderID()),
			zap.String("reason", res.Reason),
			zap.Bool("stale", res.MarkedStale))
	}
	if res.MarkedStale || r.sess.Store.Snapshot().IsStale(ev.OrderID()) {
		r.requestRefetch()
	}
	if toast != nil {
		r.sess.Notify(*toast)
	}
	return nil
}

func (r *Reconciler) apply(ev events.Event) (dashboard.Result, *dashboard.Toast) {
	store := r.sess.Store
	now := store.Now()
	user := r.sess.User

	switch e := ev.(type) {
	case *events.NewOrderFromBranch:
		o := e.FullOrder()
		if o == nil {
			return dashboard.Result{Reason: "no order payload"}, nil
		}
		if !order.CanView(user.Actor(), o) {
			return dashboard.Result{Reason: "order outside user scope"}, nil
		}
		_, existed := store.Order(o.ID)
		res := store.Dispatch(dashboard.AddOrder{Order: o})
		if !res.Applied || existed || !user.Role.IsManager() {
			return res, nil
		}
		return res, r.toast(dashboard.ToastInfo, order.NoticeNewOrder, o.ID,
			o.OrderNumber, o.Branch.DisplayName(user.Locale))

	case *events.OrderApprovedForBranch:
		return r.statusChange(e, order.OrderStatusApproved, e.ChangedBy, "", now,
			order.NoticeOrderApproved, user.Role == order.RoleBranch)

	case *events.OrderCompletedByChefs:
		return r.statusChange(e, order.OrderStatusCompleted, order.SystemActorName, "", now,
			order.NoticeOrderCompleted, user.Role.IsManager())

	case *events.OrderInTransitToBranch:
		return r.statusChange(e, order.OrderStatusInTransit, e.ChangedBy, "", now,
			order.NoticeOrderInTransit, user.Role == order.RoleBranch)

	case *events.BranchConfirmedReceipt:
		return r.statusChange(e, order.OrderStatusDelivered, e.ChangedBy, "", now,
			order.NoticeOrderDelivered, user.Role.IsManager())

	case *events.OrderStatusUpdated:
		return r.statusChange(e, e.Status, e.ChangedBy, e.Notes, now, "", false)

	case *events.TaskAssigned:
		var res dashboard.Result
		if full := e.FullOrder(); full != nil {
			res = store.Dispatch(dashboard.UpdateOrderStatus{OrderID: e.OrderID(), Order: full})
		} else {
			res = store.Dispatch(dashboard.TaskAssigned{OrderID: e.OrderID(), Items: e.Items, At: now})
		}
		if res.Applied && user.Role == order.RoleChef && assignsTo(e.Items, user.ID) {
			return res, r.toast(dashboard.ToastInfo, order.NoticeTaskAssigned, e.OrderID(), r.orderNumber(e.OrderID()))
		}
		return res, nil

	case *events.TaskCompleted:
		return r.itemChange(e, e.ItemID, order.ItemStatusCompleted, now), nil

	case *events.ItemStatusUpdated:
		return r.itemChange(e, e.ItemID, e.Status, now), nil

	case *events.ReturnStatusUpdated:
		var res dashboard.Result
		if full := e.FullOrder(); full != nil {
			res = store.Dispatch(dashboard.UpdateOrderStatus{OrderID: e.OrderID(), Order: full})
		} else {
			res = store.Dispatch(dashboard.UpdateReturnStatus{
				OrderID:       e.OrderID(),
				ReturnID:      e.ReturnID,
				Status:        e.Status,
				ReviewNotes:   e.ReviewNotes,
				AdjustedTotal: e.AdjustedTotal,
				At:            now,
			})
		}
		if res.Applied && user.Role == order.RoleBranch {
			return res, r.toast(dashboard.ToastInfo, order.NoticeReturnReviewed, e.OrderID(),
				r.orderNumber(e.OrderID()), order.ReturnStatusLabel(e.Status, user.Locale.IsRTL()))
		}
		return res, nil

	case *events.ReturnCreated:
		res := store.Dispatch(dashboard.AddReturn{OrderID: e.OrderID(), Return: e.Return})
		if res.Applied && user.Role.IsManager() {
			return res, r.toast(dashboard.ToastInfo, order.NoticeReturnCreated, e.OrderID(), r.orderNumber(e.OrderID()))
		}
		return res, nil

	case *events.MissingAssignments:
		res := store.Dispatch(dashboard.MarkStale{OrderID: e.OrderID(), Reason: e.Message})
		if !res.Applied || !user.Role.IsManager() {
			return res, nil
		}
		number := e.OrderNumber
		if number == "" {
			number = r.orderNumber(e.OrderID())
		}
		return res, r.toast(dashboard.ToastWarning, order.NoticeMissingAssignments, e.OrderID(), number)
	}

	return dashboard.Result{Reason: "unhandled event " + string(ev.Name())}, nil
}

// statusChange replaces the order when the event carries it, else patches
// the status. A toast is raised only when notify is set and the change applied.
func (r *Reconciler) statusChange(ev events.Event, target order.OrderStatus, changedBy, notes string,
	at time.Time, notice order.Notice, notify bool) (dashboard.Result, *dashboard.Toast) {
	act := dashboard.UpdateOrderStatus{
		OrderID:   ev.OrderID(),
		Status:    target,
		ChangedBy: changedBy,
		Notes:     notes,
		At:        at,
	}
	if full := ev.FullOrder(); full != nil {
		act.Order = full
	}
	res := r.sess.Store.Dispatch(act)
	if !res.Applied || !notify || notice == "" {
		return res, nil
	}
	return res, r.toast(dashboard.ToastInfo, notice, ev.OrderID(), r.orderNumber(ev.OrderID()))
}

func (r *Reconciler) itemChange(ev events.Event, itemID string, status order.ItemStatus, at time.Time) dashboard.Result {
	if full := ev.FullOrder(); full != nil {
		return r.sess.Store.Dispatch(dashboard.UpdateOrderStatus{OrderID: ev.OrderID(), Order: full})
	}
	return r.sess.Store.Dispatch(dashboard.UpdateItemStatus{
		OrderID: ev.OrderID(),
		ItemID:  itemID,
		Status:  status,
		At:      at,
	})
}

func (r *Reconciler) toast(level dashboard.ToastLevel, notice order.Notice, orderID string, args ...any) *dashboard.Toast {
	t := dashboard.NewToast(level, notice, r.sess.Locale(), orderID, args...)
	return &t
}

// orderNumber falls back to the id for orders the store does not hold
func (r *Reconciler) orderNumber(orderID string) string {
	if o, ok := r.sess.Store.Order(orderID); ok && o.OrderNumber != "" {
		return o.OrderNumber
	}
	return orderID
}

func assignsTo(items []order.ItemAssignment, userID string) bool {
	for _, it := range items {
		if it.AssignedTo != nil && it.AssignedTo.UserID == userID {
			return true
		}
	}
	return false
}

func (r *Reconciler) requestRefetch() {
	select {
	case r.refetch <- struct{}{}:
	default:
	}
}

// RunRefetcher refetches stale orders whenever an event flagged one, until
// ctx is done. Requests arriving during a refetch coalesce into one more pass.
func (r *Reconciler) RunRefetcher(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.refetch:
			rctx, cancel := context.WithTimeout(ctx, r.refetchTimeout)
			if err := r.sess.RefetchStale(rctx); err != nil {
				r.logger.Warn("Refetch of stale orders failed", zap.Error(err))
			}
			cancel()
		}
	}
}

var _ shared.EventHandler = (*Reconciler)(nil)
