package order

import (
	"strconv"
	"strings"
)

// Locale selects the display language of a dashboard user
type Locale string

const (
	LocaleAr Locale = "ar"
	LocaleEn Locale = "en"
)

// ParseLocale maps a language tag to a supported locale, defaulting to Arabic
func ParseLocale(raw string) Locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "en") {
		return LocaleEn
	}
	return LocaleAr
}

// IsRTL reports whether the locale is written right to left
func (l Locale) IsRTL() bool {
	return l != LocaleEn
}

// Localize picks the Arabic value for RTL and the English value otherwise.
// An empty English value falls back to the Arabic one.
func Localize(isRTL bool, value, valueEn string) string {
	if isRTL || strings.TrimSpace(valueEn) == "" {
		return value
	}
	return valueEn
}

// DisplayName returns the branch name in the given locale
func (b Branch) DisplayName(l Locale) string { return Localize(l.IsRTL(), b.Name, b.NameEn) }

// DisplayName returns the department name in the given locale
func (d Department) DisplayName(l Locale) string { return Localize(l.IsRTL(), d.Name, d.NameEn) }

// DisplayName returns the chef name in the given locale
func (c Chef) DisplayName(l Locale) string { return Localize(l.IsRTL(), c.Name, c.NameEn) }

// DisplayName returns the product name in the given locale
func (p Product) DisplayName(l Locale) string { return Localize(l.IsRTL(), p.Name, p.NameEn) }

// DisplayUnit returns the product unit in the given locale. Without an
// explicit English unit the Arabic one is translated from the unit table.
func (p Product) DisplayUnit(l Locale) string {
	if !l.IsRTL() && strings.TrimSpace(p.UnitEn) != "" {
		return p.UnitEn
	}
	return TranslateUnit(p.Unit, l.IsRTL())
}

// DisplayNotes returns the order notes in the given locale
func (o *Order) DisplayNotes(l Locale) string { return Localize(l.IsRTL(), o.Notes, o.NotesEn) }

// ItemView is the display form of an order item
type ItemView struct {
	ID               string `json:"id"`
	ProductName      string `json:"productName"`
	Unit             string `json:"unit"`
	Department       string `json:"department"`
	Quantity         int    `json:"quantity"`
	ReturnedQuantity int    `json:"returnedQuantity"`
	Price            string `json:"price"`
	Status           string `json:"status"`
	StatusLabel      string `json:"statusLabel"`
	AssignedTo       string `json:"assignedTo,omitempty"`
}

// ReturnView is the display form of a return
type ReturnView struct {
	ReturnID    string `json:"returnId"`
	Status      string `json:"status"`
	StatusLabel string `json:"statusLabel"`
	Quantity    int    `json:"quantity"`
	ReviewNotes string `json:"reviewNotes,omitempty"`
}

// OrderView carries every derived display field of an order for one locale.
// It is recomputed on every read and never stored.
type OrderView struct {
	ID              string       `json:"id"`
	OrderNumber     string       `json:"orderNumber"`
	BranchID        string       `json:"branchId"`
	BranchName      string       `json:"branchName"`
	Status          string       `json:"status"`
	StatusLabel     string       `json:"statusLabel"`
	Priority        string       `json:"priority"`
	PriorityLabel   string       `json:"priorityLabel"`
	TotalQuantity   int          `json:"totalQuantity"`
	TotalAmount     string       `json:"totalAmount"`
	AdjustedTotal   string       `json:"adjustedTotal"`
	Notes           string       `json:"notes,omitempty"`
	CreatedAt       string       `json:"createdAt"`
	UnassignedItems int          `json:"unassignedItems"`
	Items           []ItemView   `json:"items"`
	Returns         []ReturnView `json:"returns,omitempty"`
}

// NewOrderView derives the display form of an order
func NewOrderView(o *Order, l Locale) OrderView {
	rtl := l.IsRTL()
	v := OrderView{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		BranchID:        o.Branch.ID,
		BranchName:      o.Branch.DisplayName(l),
		Status:          o.Status.String(),
		StatusLabel:     StatusLabel(o.Status, rtl),
		Priority:        string(o.Priority),
		PriorityLabel:   PriorityLabel(o.Priority, rtl),
		TotalQuantity:   CalculateTotalQuantity(o),
		TotalAmount:     FormatCurrency(o.TotalAmount, l),
		AdjustedTotal:   FormatCurrency(CalculateAdjustedTotal(o), l),
		Notes:           o.DisplayNotes(l),
		CreatedAt:       o.CreatedAt.Format("2006-01-02 15:04"),
		UnassignedItems: len(o.UnassignedItems()),
		Items:           make([]ItemView, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		iv := ItemView{
			ID:               item.ID,
			ProductName:      item.Product.DisplayName(l),
			Unit:             item.Product.DisplayUnit(l),
			Department:       item.Product.Department.DisplayName(l),
			Quantity:         item.Quantity,
			ReturnedQuantity: item.ReturnedQuantity,
			Price:            FormatCurrency(item.Price, l),
			Status:           item.Status.String(),
			StatusLabel:      ItemStatusLabel(item.Status, rtl),
		}
		if item.IsAssigned() {
			iv.AssignedTo = item.AssignedTo.DisplayName(l)
		}
		v.Items = append(v.Items, iv)
	}
	for _, ret := range o.Returns {
		qty := 0
		for _, ri := range ret.Items {
			qty += ri.Quantity
		}
		v.Returns = append(v.Returns, ReturnView{
			ReturnID:    ret.ReturnID,
			Status:      ret.Status.String(),
			StatusLabel: ReturnStatusLabel(ret.Status, rtl),
			Quantity:    qty,
			ReviewNotes: ret.ReviewNotes,
		})
	}
	return v
}

// ItemSummary renders "name × qty unit" for every item, joined by commas
func ItemSummary(o *Order, l Locale) string {
	parts := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		parts = append(parts, item.Product.DisplayName(l)+" × "+strconv.Itoa(item.Quantity)+" "+item.Product.DisplayUnit(l))
	}
	sep := ", "
	if l.IsRTL() {
		sep = "، "
	}
	return strings.Join(parts, sep)
}
