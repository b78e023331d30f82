package dashboard

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/bakery/orderdesk/internal/domain/order"
)

// OrderPage is one page of the filtered, sorted order list
type OrderPage struct {
	Orders      []*order.Order
	Total       int
	TotalPages  int
	CurrentPage int
	PageSize    int
}

// StatusCounts holds per-status counters for the dashboard tabs. All counts
// every order regardless of status.
type StatusCounts struct {
	All      int                       `json:"all"`
	ByStatus map[order.OrderStatus]int `json:"byStatus"`
}

// Filter returns the orders matching the view's filters and search query,
// in store order
func Filter(orders []*order.Order, v View) []*order.Order {
	query := strings.ToLower(strings.TrimSpace(v.SearchQuery))
	out := make([]*order.Order, 0, len(orders))
	for _, o := range orders {
		if v.FilterStatus != "" && o.Status != v.FilterStatus {
			continue
		}
		if v.FilterBranch != "" && o.Branch.ID != v.FilterBranch {
			continue
		}
		if v.FilterPriority != "" && o.Priority != v.FilterPriority {
			continue
		}
		if v.FilterDepartment != "" && !hasDepartment(o, v.FilterDepartment) {
			continue
		}
		if query != "" && !matchesQuery(o, query) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func hasDepartment(o *order.Order, departmentID string) bool {
	for _, d := range o.Departments() {
		if d.ID == departmentID {
			return true
		}
	}
	return false
}

func matchesQuery(o *order.Order, query string) bool {
	fields := []string{o.OrderNumber, o.Branch.Name, o.Branch.NameEn, o.Notes, o.NotesEn}
	for _, item := range o.Items {
		fields = append(fields, item.Product.Name, item.Product.NameEn)
	}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

// SortOrders sorts in place by the view's field and direction. Ties are
// broken by id so pages are stable. Branches sort by the name shown in
// locale, collated for that language.
func SortOrders(orders []*order.Order, field SortField, dir SortDirection, locale order.Locale) {
	var branches *collate.Collator
	if field == SortByBranch {
		branches = collate.New(collationTag(locale))
	}
	sort.SliceStable(orders, func(i, j int) bool {
		var c int
		if branches != nil {
			c = branches.CompareString(orders[i].Branch.DisplayName(locale), orders[j].Branch.DisplayName(locale))
		} else {
			c = compareOrders(orders[i], orders[j], field)
		}
		if c == 0 {
			c = strings.Compare(orders[i].ID, orders[j].ID)
			// id tiebreak stays ascending in both directions
			return c < 0
		}
		if dir == SortAsc {
			return c < 0
		}
		return c > 0
	})
}

func compareOrders(a, b *order.Order, field SortField) int {
	switch field {
	case SortByOrderNumber:
		return strings.Compare(a.OrderNumber, b.OrderNumber)
	case SortByPriority:
		return a.Priority.Rank() - b.Priority.Rank()
	case SortByTotalAmount:
		return a.TotalAmount.Cmp(b.TotalAmount)
	case SortByStatus:
		return statusRank(a.Status) - statusRank(b.Status)
	default:
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
		return 0
	}
}

func collationTag(l order.Locale) language.Tag {
	if l.IsRTL() {
		return language.Arabic
	}
	return language.English
}

func statusRank(s order.OrderStatus) int {
	for idx, st := range order.AllOrderStatuses {
		if st == s {
			return idx
		}
	}
	return len(order.AllOrderStatuses)
}

// Page applies filter, sort and pagination of the state's view. A current
// page beyond the last page is clamped to the last page.
func (s State) Page(locale order.Locale) OrderPage {
	return PageOf(s.Orders, s.View, locale)
}

// PageOf pages an arbitrary order list with the given view
func PageOf(orders []*order.Order, v View, locale order.Locale) OrderPage {
	filtered := Filter(orders, v)
	SortOrders(filtered, v.SortBy, v.SortDirection, locale)

	size := v.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(filtered)
	pages := (total + size - 1) / size
	current := clampInt(v.CurrentPage, 1, max(pages, 1))

	start := (current - 1) * size
	end := min(start+size, total)
	if start > total {
		start = total
	}

	return OrderPage{
		Orders:      filtered[start:end],
		Total:       total,
		TotalPages:  pages,
		CurrentPage: current,
		PageSize:    size,
	}
}

// Counts returns per-status counters over every order in the state
func (s State) Counts() StatusCounts {
	counts := StatusCounts{All: len(s.Orders), ByStatus: make(map[order.OrderStatus]int, len(order.AllOrderStatuses))}
	for _, st := range order.AllOrderStatuses {
		counts.ByStatus[st] = 0
	}
	for _, o := range s.Orders {
		counts.ByStatus[o.Status]++
	}
	return counts
}

// Page returns the current page of the store's view
func (s *Store) Page(locale order.Locale) OrderPage {
	return s.Snapshot().Page(locale)
}

// Counts returns per-status counters of the store
func (s *Store) Counts() StatusCounts {
	return s.Snapshot().Counts()
}
