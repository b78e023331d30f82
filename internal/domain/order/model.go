package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Branch is read-only reference data for the ordering branch
type Branch struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	NameEn string `json:"nameEn,omitempty"`
}

// Department partitions products and chefs on the production floor
type Department struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	NameEn string `json:"nameEn,omitempty"`
}

// Chef is a production-floor worker that items can be assigned to.
// Chefs are never mutated by the dashboard.
type Chef struct {
	UserID     string     `json:"userId"`
	Name       string     `json:"name"`
	NameEn     string     `json:"nameEn,omitempty"`
	Department Department `json:"department"`
}

// Product describes what an order line asks for
type Product struct {
	ID         string     `json:"_id"`
	Name       string     `json:"name"`
	NameEn     string     `json:"nameEn,omitempty"`
	Unit       string     `json:"unit,omitempty"`
	UnitEn     string     `json:"unitEn,omitempty"`
	Department Department `json:"department"`
}

// OrderItem represents a single product line within an order
type OrderItem struct {
	ID               string          `json:"_id"`
	Product          Product         `json:"product"`
	Quantity         int             `json:"quantity"`
	Price            decimal.Decimal `json:"price"`
	Status           ItemStatus      `json:"status"`
	AssignedTo       *Chef           `json:"assignedTo,omitempty"`
	ReturnedQuantity int             `json:"returnedQuantity"`
	StartedAt        *time.Time      `json:"startedAt,omitempty"`
	CompletedAt      *time.Time      `json:"completedAt,omitempty"`
}

// Amount returns quantity * price at order time
func (i *OrderItem) Amount() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// RemainingQuantity returns the quantity that has not been returned yet
func (i *OrderItem) RemainingQuantity() int {
	remaining := i.Quantity - i.ReturnedQuantity
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsAssigned reports whether a chef has been assigned
func (i *OrderItem) IsAssigned() bool {
	return i.AssignedTo != nil && i.AssignedTo.UserID != ""
}

// StatusHistoryEntry is one record of the append-only status log
type StatusHistoryEntry struct {
	Status    OrderStatus `json:"status"`
	ChangedBy string      `json:"changedBy"`
	ChangedAt time.Time   `json:"changedAt"`
	Notes     string      `json:"notes,omitempty"`
}

// ReturnItem is one product line of a return request
type ReturnItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
	Notes     string `json:"notes,omitempty"`
}

// OrderReturn is a branch-initiated request to send back delivered goods
type OrderReturn struct {
	ReturnID    string       `json:"returnId" validate:"required"`
	Status      ReturnStatus `json:"status"`
	Items       []ReturnItem `json:"items"`
	Reason      string       `json:"reason,omitempty"`
	ReviewNotes string       `json:"reviewNotes,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	ReviewedAt  *time.Time   `json:"reviewedAt,omitempty"`
}

// Order is the root aggregate: a branch's request for produced goods
type Order struct {
	ID                    string               `json:"id"`
	OrderNumber           string               `json:"orderNumber"`
	Branch                Branch               `json:"branch"`
	Status                OrderStatus          `json:"status"`
	Priority              Priority             `json:"priority"`
	Items                 []OrderItem          `json:"items"`
	Returns               []OrderReturn        `json:"returns"`
	TotalAmount           decimal.Decimal      `json:"totalAmount"`
	AdjustedTotal         *decimal.Decimal     `json:"adjustedTotal,omitempty"`
	StatusHistory         []StatusHistoryEntry `json:"statusHistory"`
	Notes                 string               `json:"notes,omitempty"`
	NotesEn               string               `json:"notesEn,omitempty"`
	CreatedBy             string               `json:"createdBy,omitempty"`
	CreatedAt             time.Time            `json:"createdAt"`
	RequestedDeliveryDate *time.Time           `json:"requestedDeliveryDate,omitempty"`
}

// FindItem returns the item with the given ID
func (o *Order) FindItem(itemID string) (*OrderItem, bool) {
	for idx := range o.Items {
		if o.Items[idx].ID == itemID {
			return &o.Items[idx], true
		}
	}
	return nil, false
}

// FindItemByProduct returns the first item ordering the given product
func (o *Order) FindItemByProduct(productID string) (*OrderItem, bool) {
	for idx := range o.Items {
		if o.Items[idx].Product.ID == productID {
			return &o.Items[idx], true
		}
	}
	return nil, false
}

// FindReturn returns the return with the given ID
func (o *Order) FindReturn(returnID string) (*OrderReturn, bool) {
	for idx := range o.Returns {
		if o.Returns[idx].ReturnID == returnID {
			return &o.Returns[idx], true
		}
	}
	return nil, false
}

// UnassignedItems returns the items that still need a chef.
// Cancelled items are never counted.
func (o *Order) UnassignedItems() []OrderItem {
	var out []OrderItem
	for _, item := range o.Items {
		if item.Status == ItemStatusCancelled {
			continue
		}
		if !item.IsAssigned() {
			out = append(out, item)
		}
	}
	return out
}

// AllItemsAssigned reports whether every live item has a chef
func (o *Order) AllItemsAssigned() bool {
	live := 0
	for _, item := range o.Items {
		if item.Status == ItemStatusCancelled {
			continue
		}
		live++
		if !item.IsAssigned() {
			return false
		}
	}
	return live > 0
}

// AllItemsCompleted reports whether every live item is completed
func (o *Order) AllItemsCompleted() bool {
	live := 0
	for _, item := range o.Items {
		if item.Status == ItemStatusCancelled {
			continue
		}
		live++
		if item.Status != ItemStatusCompleted {
			return false
		}
	}
	return live > 0
}

// Departments returns the distinct departments of the order's items in item order
func (o *Order) Departments() []Department {
	seen := make(map[string]bool)
	var out []Department
	for _, item := range o.Items {
		d := item.Product.Department
		if d.ID == "" || seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out
}

// Clone returns a deep copy of the order
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	if o.Items != nil {
		c.Items = make([]OrderItem, len(o.Items))
		for idx, item := range o.Items {
			c.Items[idx] = item
			if item.AssignedTo != nil {
				chef := *item.AssignedTo
				c.Items[idx].AssignedTo = &chef
			}
			c.Items[idx].StartedAt = cloneTime(item.StartedAt)
			c.Items[idx].CompletedAt = cloneTime(item.CompletedAt)
		}
	}
	if o.Returns != nil {
		c.Returns = make([]OrderReturn, len(o.Returns))
		for idx, ret := range o.Returns {
			c.Returns[idx] = ret
			if ret.Items != nil {
				c.Returns[idx].Items = make([]ReturnItem, len(ret.Items))
				copy(c.Returns[idx].Items, ret.Items)
			}
			c.Returns[idx].ReviewedAt = cloneTime(ret.ReviewedAt)
		}
	}
	if o.StatusHistory != nil {
		c.StatusHistory = make([]StatusHistoryEntry, len(o.StatusHistory))
		copy(c.StatusHistory, o.StatusHistory)
	}
	if o.AdjustedTotal != nil {
		v := *o.AdjustedTotal
		c.AdjustedTotal = &v
	}
	c.RequestedDeliveryDate = cloneTime(o.RequestedDeliveryDate)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
