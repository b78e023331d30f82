package order

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Currency markers for the two supported locales
const (
	CurrencySuffixAr = "ر.س"
	CurrencyPrefixEn = "SAR"
)

// CalculateTotalQuantity returns the exact sum of item quantities
func CalculateTotalQuantity(o *Order) int {
	if o == nil {
		return 0
	}
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// CalculateAdjustedTotal returns the order total minus the value of approved
// returns. A carried authoritative value wins. The result always lies in
// [0, totalAmount].
func CalculateAdjustedTotal(o *Order) decimal.Decimal {
	if o == nil {
		return decimal.Zero
	}
	if o.AdjustedTotal != nil {
		return clampTotal(*o.AdjustedTotal, o.TotalAmount)
	}
	return computeAdjustedTotal(o)
}

// computeAdjustedTotal ignores any carried value and recomputes from the
// returns. Per product the counted quantity never exceeds what was ordered.
func computeAdjustedTotal(o *Order) decimal.Decimal {
	deduction := decimal.Zero
	for productID, qty := range countedReturnQuantities(o) {
		item, ok := o.FindItemByProduct(productID)
		if !ok {
			continue
		}
		if qty > item.Quantity {
			qty = item.Quantity
		}
		deduction = deduction.Add(item.Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return clampTotal(o.TotalAmount.Sub(deduction), o.TotalAmount)
}

func countedReturnQuantities(o *Order) map[string]int {
	out := make(map[string]int)
	for _, ret := range o.Returns {
		if !ret.Status.CountsAgainstTotal() {
			continue
		}
		for _, ri := range ret.Items {
			if ri.Quantity > 0 {
				out[ri.ProductID] += ri.Quantity
			}
		}
	}
	return out
}

func clampTotal(v, total decimal.Decimal) decimal.Decimal {
	if total.IsNegative() {
		total = decimal.Zero
	}
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(total) {
		return total
	}
	return v
}

// ReturnedQuantityFor returns how much of a product has been returned, taking
// the larger of the server counter and the approved returns on the order
func ReturnedQuantityFor(o *Order, productID string) int {
	item, ok := o.FindItemByProduct(productID)
	if !ok {
		return 0
	}
	returned := countedReturnQuantities(o)[productID]
	if item.ReturnedQuantity > returned {
		returned = item.ReturnedQuantity
	}
	if returned > item.Quantity {
		returned = item.Quantity
	}
	return returned
}

// PendingReturnQuantity is the quantity of a product held by returns still
// awaiting review. It does not touch the adjusted total but is no longer
// available to a new return request.
func PendingReturnQuantity(o *Order, productID string) int {
	held := 0
	for _, ret := range o.Returns {
		if ret.Status != ReturnStatusPendingApproval {
			continue
		}
		for _, ri := range ret.Items {
			if ri.ProductID == productID && ri.Quantity > 0 {
				held += ri.Quantity
			}
		}
	}
	return held
}

// RemainingReturnable returns the quantity of a product a new return may
// still claim: ordered minus returned minus pending review, never negative
func RemainingReturnable(o *Order, productID string) int {
	item, ok := o.FindItemByProduct(productID)
	if !ok {
		return 0
	}
	left := item.Quantity - ReturnedQuantityFor(o, productID) - PendingReturnQuantity(o, productID)
	if left < 0 {
		return 0
	}
	return left
}

var (
	arPrinter = message.NewPrinter(language.Arabic)
	enPrinter = message.NewPrinter(language.English)
)

// FormatCurrency renders an amount with two decimals. Arabic places the riyal
// sign after the number, English places the currency code before it.
func FormatCurrency(amount decimal.Decimal, locale Locale) string {
	f, _ := amount.Round(2).Float64()
	if locale.IsRTL() {
		return arPrinter.Sprint(number.Decimal(f, number.Scale(2))) + " " + CurrencySuffixAr
	}
	return CurrencyPrefixEn + " " + enPrinter.Sprint(number.Decimal(f, number.Scale(2)))
}
