package dashboard

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/domain/shared"
	"go.uber.org/zap"
)

// ActionService submits user actions to the order service. Every action is
// checked against the order policy and validated before the call, holds the
// session's submitting marker while in flight and replaces the order with
// the server's copy on success. Nothing is applied optimistically.
type ActionService struct {
	audit   ActionLog
	metrics Metrics
	logger  *zap.Logger
	timeout time.Duration
	clock   func() time.Time
}

// ActionServiceOption configures an ActionService
type ActionServiceOption func(*ActionService)

// WithActionLog records every submitted action
func WithActionLog(log ActionLog) ActionServiceOption {
	return func(s *ActionService) { s.audit = log }
}

// WithActionMetrics sets the metrics sink
func WithActionMetrics(m Metrics) ActionServiceOption {
	return func(s *ActionService) { s.metrics = m }
}

// WithActionTimeout bounds each call to the order service
func WithActionTimeout(d time.Duration) ActionServiceOption {
	return func(s *ActionService) { s.timeout = d }
}

// WithActionClock overrides the time source
func WithActionClock(clock func() time.Time) ActionServiceOption {
	return func(s *ActionService) { s.clock = clock }
}

// NewActionService creates an action service
func NewActionService(logger *zap.Logger, opts ...ActionServiceOption) *ActionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ActionService{
		metrics: noopMetrics{},
		logger:  logger,
		timeout: 15 * time.Second,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// submission describes one action round trip
type submission struct {
	action   order.Action
	orderID  string
	targetID string
	check    func(a order.Actor, o *order.Order) error
	call     func(ctx context.Context, api OrderAPI, token string) (*order.Order, error)
}

// Approve approves a pending order
func (s *ActionService) Approve(ctx context.Context, sess *Session, orderID string) (*order.Order, error) {
	return s.submit(ctx, sess, submission{
		action:  order.ActionApprove,
		orderID: orderID,
		check: func(a order.Actor, o *order.Order) error {
			return order.AuthorizeTransition(a, o, order.OrderStatusApproved)
		},
		call: func(ctx context.Context, api OrderAPI, token string) (*order.Order, error) {
			return api.ApproveOrder(ctx, token, orderID)
		},
	})
}

// Cancel cancels an order that has not shipped
func (s *ActionService) Cancel(ctx context.Context, sess *Session, orderID, reason string) (*order.Order, error) {
	return s.submit(ctx, sess, submission{
		action:  order.ActionCancel,
		orderID: orderID,
		check: func(a order.Actor, o *order.Order) error {
			return order.AuthorizeTransition(a, o, order.OrderStatusCancelled)
		},
		call: func(ctx context.Context, api OrderAPI, token string) (*order.Order, error) {
			return api.CancelOrder(ctx, token, orderID, strings.TrimSpace(reason))
		},
	})
}

// Ship sends a completed order to its branch
func (s *ActionService) Ship(ctx context.Context, sess *Session, orderID string) (*order.Order, error) {
	return s.submit(ctx, sess, submission{
		action:  order.ActionShip,
		orderID: orderID,
		check: func(a order.Actor, o *order.Order) error {
			return order.AuthorizeTransition(a, o, order.OrderStatusInTransit)
		},
		call: func(ctx context.Context, api OrderAPI, token string) (*order.Order, error) {
			return api.ShipOrder(ctx, token, orderID)
		},
	})
}

// ConfirmDelivery records that the branch received the order
func (s *ActionService) ConfirmDelivery(ctx context.Context, sess *Session, orderID string) (*order.Order, error) {
	return s.submit(ctx, sess, submission{
		action:  order.ActionConfirmDelivery,
		orderID: orderID,
		check: func(a order.Actor, o *order.Order) error {
			return order.AuthorizeTransition(a, o, order.OrderStatusDelivered)
		},
		call: func(ctx context.Context, api OrderAPI, token string) (*order.Order, error) {
			return api.ConfirmDelivery(ctx, token, orderID)
		},
	})
}

// AssignChefs assigns a chef to every unassigned item of an approved order
func (s *ActionService) AssignChefs(ctx context.Context, sess *Session, orderID string, items []order.ItemAssignment) (*order.Order, error) {
	return s.submit(ctx, sess, submission{
		action:  order.ActionAssignChefs,
		orderID: orderID,
		check: func(a order.Actor, o *order.Order) error {
			if err := order.AuthorizeAssignment(a, o); err != nil {
				return err
			}
			return order.ValidateAssignments(o, items)
		},
		call: func(ctx context.Context, api OrderAPI, token string) (*order.Order, error) {
			return api.AssignChefs(ctx, token, orderID, items)
		},
	})
}

// StartItem moves the chef's own item to in_progress
func (s *ActionService) StartItem(ctx context.Context, sess *Session, orderID, itemID string) (*order.Order, error) {
	return s.itemAction(ctx, sess, order.ActionStartItem, orderID, itemID, order.ItemStatusInProgress)
}

// CompleteItem moves the chef's own item to completed
func (s *ActionService) CompleteItem(ctx context.Context, sess *Session, orderID, itemID string) (*order.Order, error) {
	return s.itemAction(ctx, sess, order.ActionCompleteItem, orderID, itemID, order.ItemStatusCompleted)
}

func (s *ActionService) itemAction(ctx context.Context, sess *Session, action order.Action, orderID, itemID string, target order.ItemStatus) (*order.Order, error) {
	return s.submit(ctx, sess, submission{
		action:   action,
		orderID:  orderID,
		targetID: itemID,
		check: func(a order.Actor, o *order.Order) error {
			return order.AuthorizeItemTransition(a, o, itemID, target)
		},
		call: func(ctx context.Context, api OrderAPI, token string) (*order.Order, error) {
			return api.UpdateItemStatus(ctx, token, orderID, itemID, target)
		},
	})
}

// RequestReturn asks for part of a delivered order to be taken back
func (s *ActionService) RequestReturn(ctx context.Context, sess *Session, orderID string, req ReturnRequest) (*order.Order, error) {
	return s.submit(ctx, sess, submission{
		action:  order.ActionRequestReturn,
		orderID: orderID,
		check: func(a order.Actor, o *order.Order) error {
			if err := order.AuthorizeReturnRequest(a, o); err != nil {
				return err
			}
			return order.ValidateReturnRequest(o, req.Items)
		},
		call: func(ctx context.Context, api OrderAPI, token string) (*order.Order, error) {
			return api.CreateReturn(ctx, token, orderID, req)
		},
	})
}

// ApproveReturn approves a pending return
func (s *ActionService) ApproveReturn(ctx context.Context, sess *Session, orderID, returnID, notes string) (*order.Order, error) {
	return s.reviewReturn(ctx, sess, order.ActionApproveReturn, orderID, returnID, notes, order.ReturnStatusApproved)
}

// RejectReturn rejects a pending return
func (s *ActionService) RejectReturn(ctx context.Context, sess *Session, orderID, returnID, notes string) (*order.Order, error) {
	return s.reviewReturn(ctx, sess, order.ActionRejectReturn, orderID, returnID, notes, order.ReturnStatusRejected)
}

func (s *ActionService) reviewReturn(ctx context.Context, sess *Session, action order.Action, orderID, returnID, notes string, target order.ReturnStatus) (*order.Order, error) {
	return s.submit(ctx, sess, submission{
		action:   action,
		orderID:  orderID,
		targetID: returnID,
		check: func(a order.Actor, o *order.Order) error {
			return order.AuthorizeReturnReview(a, o, returnID, target)
		},
		call: func(ctx context.Context, api OrderAPI, token string) (*order.Order, error) {
			if target == order.ReturnStatusApproved {
				return api.ApproveReturn(ctx, token, orderID, returnID, notes)
			}
			return api.RejectReturn(ctx, token, orderID, returnID, notes)
		},
	})
}

func (s *ActionService) submit(ctx context.Context, sess *Session, sub submission) (result *order.Order, err error) {
	start := s.clock()
	outcome := OutcomeRejected
	defer func() {
		s.finish(ctx, sess, sub, outcome, err, start)
	}()

	current, ok := sess.Store.Order(sub.orderID)
	if !ok {
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Order not found: "+sub.orderID)
	}
	if err := sub.check(sess.Actor(), current); err != nil {
		return nil, err
	}

	release, err := sess.Store.Acquire(sub.orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	updated, err := sub.call(callCtx, sess.api, sess.Token())
	if err != nil {
		outcome = OutcomeFailed
		s.notifyFailure(sess, sub, current, err)
		return nil, err
	}

	outcome = OutcomeSucceeded
	if updated == nil || updated.ID != sub.orderID {
		if rerr := sess.Refetch(ctx, sub.orderID); rerr != nil {
			s.logger.Warn("Refetch after action failed",
				zap.String("order_id", sub.orderID),
				zap.Error(rerr))
		}
		updated, _ = sess.Store.Order(sub.orderID)
	} else {
		sess.Store.Dispatch(AddOrder{Order: updated})
	}

	locale := sess.Locale()
	sess.Notify(NewToast(ToastSuccess, order.NoticeActionSucceeded, locale, sub.orderID,
		order.ActionLabel(sub.action, locale.IsRTL()), current.OrderNumber))
	return updated, nil
}

func (s *ActionService) notifyFailure(sess *Session, sub submission, current *order.Order, err error) {
	locale := sess.Locale()
	if errors.Is(err, shared.ErrUpstreamDown) {
		sess.Notify(NewToast(ToastError, order.NoticeServiceUnavailable, locale, sub.orderID))
		return
	}
	sess.Notify(NewToast(ToastError, order.NoticeActionFailed, locale, sub.orderID,
		order.ActionLabel(sub.action, locale.IsRTL()), current.OrderNumber))
}

func (s *ActionService) finish(ctx context.Context, sess *Session, sub submission, outcome string, err error, start time.Time) {
	elapsed := s.clock().Sub(start)
	s.metrics.ActionCompleted(ctx, sub.action, outcome, elapsed)

	fields := []zap.Field{
		zap.String("user_id", sess.User.ID),
		zap.String("action", string(sub.action)),
		zap.String("order_id", sub.orderID),
		zap.String("outcome", outcome),
		zap.Duration("duration", elapsed),
	}
	if sub.targetID != "" {
		fields = append(fields, zap.String("target_id", sub.targetID))
	}
	switch outcome {
	case OutcomeFailed:
		s.logger.Warn("Order action failed", append(fields, zap.Error(err))...)
	case OutcomeRejected:
		s.logger.Info("Order action rejected", append(fields, zap.Error(err))...)
	default:
		s.logger.Info("Order action succeeded", fields...)
	}

	if s.audit == nil {
		return
	}
	rec := ActionRecord{
		UserID:    sess.User.ID,
		Role:      sess.User.Role,
		Action:    sub.action,
		OrderID:   sub.orderID,
		TargetID:  sub.targetID,
		Outcome:   outcome,
		ErrorCode: ErrorCode(err),
		Duration:  elapsed,
		At:        start,
	}
	if aerr := s.audit.Record(context.WithoutCancel(ctx), rec); aerr != nil {
		s.logger.Warn("Failed to record action", zap.Error(aerr))
	}
}

// ErrorCode extracts the domain error code of err, or "" for nil
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var verr *order.ValidationError
	if errors.As(err, &verr) {
		return "VALIDATION_ERROR"
	}
	var derr *shared.DomainError
	if errors.As(err, &derr) {
		return derr.Code
	}
	return "INTERNAL_ERROR"
}
