package dashboard

import (
	"errors"
	"reflect"
	"strings"

	"github.com/bakery/orderdesk/internal/domain/order"
)

// Result describes what a dispatched action did
type Result struct {
	Applied bool
	// Reason explains a no-op
	Reason string
	// MarkedStale is set when a conflicting patch flagged the order for refetch
	MarkedStale bool
	// Err is the domain error behind a rejected patch
	Err error
}

func applied() Result { return Result{Applied: true} }

func noop(reason string) Result { return Result{Reason: reason} }

func conflict(err error) Result {
	return Result{Reason: "conflict", MarkedStale: true, Err: err}
}

// Reduce applies an action to a state and returns the next state. The input
// state is never modified.
func Reduce(s State, a Action) State {
	next, _ := apply(s, a)
	return next
}

func apply(s State, a Action) (State, Result) {
	next, res := reduce(s, a)
	if res.Applied || res.MarkedStale {
		next.Version = s.Version + 1
	}
	return next, res
}

func reduce(s State, a Action) (State, Result) {
	switch act := a.(type) {
	case SetOrders:
		return reduceSetOrders(s, act)
	case AddOrder:
		return reduceAddOrder(s, act)
	case UpdateOrderStatus:
		return reduceUpdateOrderStatus(s, act)
	case UpdateItemStatus:
		return reduceUpdateItemStatus(s, act)
	case TaskAssigned:
		return patchOrder(s, act.OrderID, func(o *order.Order) error {
			return o.ApplyAssignments(act.Items, act.At)
		})
	case AddReturn:
		return reduceAddReturn(s, act)
	case UpdateReturnStatus:
		return reduceUpdateReturnStatus(s, act)

	// Filters and search reset to the first page; sort and paging never do.
	case SetFilterStatus:
		s.View.FilterStatus = act.Status
		s.View.CurrentPage = 1
	case SetFilterBranch:
		s.View.FilterBranch = act.BranchID
		s.View.CurrentPage = 1
	case SetFilterPriority:
		s.View.FilterPriority = act.Priority
		s.View.CurrentPage = 1
	case SetFilterDepartment:
		s.View.FilterDepartment = act.DepartmentID
		s.View.CurrentPage = 1
	case SetSearchQuery:
		s.View.SearchQuery = strings.TrimSpace(act.Query)
		s.View.CurrentPage = 1
	case SetSortBy:
		if !act.Field.IsValid() {
			return s, noop("unknown sort field")
		}
		s.View.SortBy = act.Field
	case SetSortDirection:
		if act.Direction != SortAsc && act.Direction != SortDesc {
			return s, noop("unknown sort direction")
		}
		s.View.SortDirection = act.Direction
	case SetPageSize:
		s.View.PageSize = clampInt(act.Size, 1, MaxPageSize)
	case SetPage:
		s.View.CurrentPage = clampInt(act.Page, 1, int(^uint(0)>>1))

	case SetSubmitting:
		if s.IsSubmitting(act.OrderID) {
			return s, noop("already submitting")
		}
		s = s.withSubmitting(act.OrderID, true)
	case ReleaseSubmitting:
		if !s.IsSubmitting(act.OrderID) {
			return s, noop("not submitting")
		}
		s = s.withSubmitting(act.OrderID, false)
	case SetSocketConnected:
		if s.SocketConnected == act.Connected {
			return s, noop("unchanged")
		}
		s.SocketConnected = act.Connected
	case MarkStale:
		if s.IndexOf(act.OrderID) < 0 {
			return s, noop("order not found")
		}
		if s.IsStale(act.OrderID) {
			return s, noop("already stale")
		}
		return s.withStale(act.OrderID, true), Result{Applied: true, MarkedStale: true}
	case ClearStale:
		if !s.IsStale(act.OrderID) {
			return s, noop("not stale")
		}
		return s.withStale(act.OrderID, false), applied()
	default:
		return s, noop("unknown action")
	}
	return s, applied()
}

func reduceSetOrders(s State, act SetOrders) (State, Result) {
	orders := make([]*order.Order, 0, len(act.Orders))
	index := make(map[string]int, len(act.Orders))
	for _, o := range act.Orders {
		if o == nil || o.ID == "" {
			continue
		}
		if idx, dup := index[o.ID]; dup {
			orders[idx] = o.Clone()
			continue
		}
		index[o.ID] = len(orders)
		orders = append(orders, o.Clone())
	}
	s.Orders = orders
	s.Stale = map[string]struct{}{}
	return s, applied()
}

func reduceAddOrder(s State, act AddOrder) (State, Result) {
	if act.Order == nil || act.Order.ID == "" {
		return s, noop("order without id")
	}
	incoming := act.Order.Clone()
	if idx := s.IndexOf(incoming.ID); idx >= 0 {
		return s.withOrder(idx, incoming).withStale(incoming.ID, false), applied()
	}
	orders := make([]*order.Order, len(s.Orders), len(s.Orders)+1)
	copy(orders, s.Orders)
	s.Orders = append(orders, incoming)
	return s, applied()
}

func reduceUpdateOrderStatus(s State, act UpdateOrderStatus) (State, Result) {
	idx := s.IndexOf(act.OrderID)
	if idx < 0 {
		return s, noop("order not found")
	}
	if act.Order != nil {
		if act.Order.ID != act.OrderID {
			return s, noop("payload id mismatch")
		}
		return s.withOrder(idx, act.Order.Clone()).withStale(act.OrderID, false), applied()
	}
	if s.Orders[idx].Status == act.Status {
		return s, noop("same status")
	}
	changedBy := act.ChangedBy
	if changedBy == "" {
		changedBy = order.SystemActorName
	}
	return patchOrder(s, act.OrderID, func(o *order.Order) error {
		return o.TransitionTo(act.Status, changedBy, act.Notes, act.At)
	})
}

func reduceUpdateItemStatus(s State, act UpdateItemStatus) (State, Result) {
	idx := s.IndexOf(act.OrderID)
	if idx < 0 {
		return s, noop("order not found")
	}
	if _, ok := s.Orders[idx].FindItem(act.ItemID); !ok {
		return s, noop("item not found")
	}
	return patchOrder(s, act.OrderID, func(o *order.Order) error {
		return o.ApplyItemStatus(act.ItemID, act.Status, act.At)
	})
}

func reduceAddReturn(s State, act AddReturn) (State, Result) {
	idx := s.IndexOf(act.OrderID)
	if idx < 0 {
		return s, noop("order not found")
	}
	next := s.Orders[idx].Clone()
	if err := next.AddReturn(act.Return); err != nil {
		return s, Result{Reason: "duplicate return", Err: err}
	}
	return s.withOrder(idx, next), applied()
}

func reduceUpdateReturnStatus(s State, act UpdateReturnStatus) (State, Result) {
	idx := s.IndexOf(act.OrderID)
	if idx < 0 {
		return s, noop("order not found")
	}
	if _, ok := s.Orders[idx].FindReturn(act.ReturnID); !ok {
		return s, noop("return not found")
	}
	return patchOrder(s, act.OrderID, func(o *order.Order) error {
		if err := o.SetReturnStatus(act.ReturnID, act.Status, act.ReviewNotes, act.At); err != nil {
			return err
		}
		if act.AdjustedTotal != nil {
			o.ApplyAuthoritativeAdjustedTotal(*act.AdjustedTotal)
		}
		return nil
	})
}

// patchOrder runs a domain mutation on a copy of the order. A rejected
// mutation leaves the order untouched and marks it stale; a mutation that
// changes nothing is a no-op.
func patchOrder(s State, orderID string, mutate func(o *order.Order) error) (State, Result) {
	idx := s.IndexOf(orderID)
	if idx < 0 {
		return s, noop("order not found")
	}
	current := s.Orders[idx]
	next := current.Clone()
	if err := mutate(next); err != nil {
		if errors.Is(err, order.ErrItemNotFound) || errors.Is(err, order.ErrReturnNotFound) {
			return s, noop("not found")
		}
		return s.withStale(orderID, true), conflict(err)
	}
	if reflect.DeepEqual(current, next) {
		return s, noop("unchanged")
	}
	return s.withOrder(idx, next), applied()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
