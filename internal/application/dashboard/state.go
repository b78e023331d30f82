package dashboard

import (
	"sort"

	"github.com/bakery/orderdesk/internal/domain/order"
)

// SortField is a column the order list can be sorted by
type SortField string

const (
	SortByCreatedAt   SortField = "createdAt"
	SortByOrderNumber SortField = "orderNumber"
	SortByPriority    SortField = "priority"
	SortByTotalAmount SortField = "totalAmount"
	SortByStatus      SortField = "status"
	SortByBranch      SortField = "branch"
)

// IsValid checks if the sort field is known
func (f SortField) IsValid() bool {
	switch f {
	case SortByCreatedAt, SortByOrderNumber, SortByPriority, SortByTotalAmount, SortByStatus, SortByBranch:
		return true
	}
	return false
}

// SortDirection is ascending or descending
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Page size bounds
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// View holds the filter, sort and pagination settings of the order list
type View struct {
	FilterStatus     order.OrderStatus `json:"filterStatus,omitempty"`
	FilterBranch     string            `json:"filterBranch,omitempty"`
	FilterPriority   order.Priority    `json:"filterPriority,omitempty"`
	FilterDepartment string            `json:"filterDepartment,omitempty"`
	SearchQuery      string            `json:"searchQuery,omitempty"`
	SortBy           SortField         `json:"sortBy"`
	SortDirection    SortDirection     `json:"sortDirection"`
	PageSize         int               `json:"pageSize"`
	CurrentPage      int               `json:"currentPage"`
}

// DefaultView returns newest-first with the default page size
func DefaultView() View {
	return View{
		SortBy:        SortByCreatedAt,
		SortDirection: SortDesc,
		PageSize:      DefaultPageSize,
		CurrentPage:   1,
	}
}

// State is an immutable snapshot of a session's store. Orders held in a
// State are never mutated; a change replaces the pointer and the slice.
type State struct {
	Orders          []*order.Order      `json:"orders"`
	View            View                `json:"view"`
	Submitting      map[string]struct{} `json:"-"`
	SocketConnected bool                `json:"socketConnected"`
	Stale           map[string]struct{} `json:"-"`
	Version         uint64              `json:"version"`
}

// NewState returns an empty state with the default view
func NewState() State {
	return State{View: DefaultView(), Stale: map[string]struct{}{}, Submitting: map[string]struct{}{}}
}

// IndexOf returns the position of an order, or -1
func (s State) IndexOf(orderID string) int {
	for idx, o := range s.Orders {
		if o.ID == orderID {
			return idx
		}
	}
	return -1
}

// IsStale reports whether the order is waiting for a refetch
func (s State) IsStale(orderID string) bool {
	_, ok := s.Stale[orderID]
	return ok
}

// StaleIDs returns the ids of every stale order
func (s State) StaleIDs() []string {
	out := make([]string, 0, len(s.Stale))
	for id := range s.Stale {
		out = append(out, id)
	}
	return out
}

func (s State) withOrder(idx int, o *order.Order) State {
	orders := make([]*order.Order, len(s.Orders))
	copy(orders, s.Orders)
	orders[idx] = o
	s.Orders = orders
	return s
}

// IsSubmitting reports whether a mutation of the order is in flight
func (s State) IsSubmitting(orderID string) bool {
	_, ok := s.Submitting[orderID]
	return ok
}

// SubmittingIDs returns the in-flight order ids, sorted
func (s State) SubmittingIDs() []string {
	out := make([]string, 0, len(s.Submitting))
	for id := range s.Submitting {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s State) withStale(orderID string, stale bool) State {
	s.Stale = withMember(s.Stale, orderID, stale)
	return s
}

func (s State) withSubmitting(orderID string, on bool) State {
	s.Submitting = withMember(s.Submitting, orderID, on)
	return s
}

// withMember returns a copy of set with id added or removed; set itself is
// shared with older snapshots and never written.
func withMember(set map[string]struct{}, id string, in bool) map[string]struct{} {
	next := make(map[string]struct{}, len(set)+1)
	for k := range set {
		next[k] = struct{}{}
	}
	if in {
		next[id] = struct{}{}
	} else {
		delete(next, id)
	}
	return next
}
