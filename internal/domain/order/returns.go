package order

import (
	"fmt"
	"strings"

	"github.com/bakery/orderdesk/internal/domain/shared"
)

// Validation codes reported per field
const (
	CodeNoReturnItems         = "NO_RETURN_ITEMS"
	CodeInvalidReturnQuantity = "INVALID_RETURN_QUANTITY"
	CodeReturnReasonRequired  = "RETURN_REASON_REQUIRED"
	CodeUnknownProduct        = "UNKNOWN_PRODUCT"
	CodeNoChefSelected        = "NO_CHEF_SELECTED"
	CodeChefDepartment        = "CHEF_DEPARTMENT_MISMATCH"
)

// FieldError is one failed client-side check
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError collects field errors found before any API call.
// It unwraps to a VALIDATION_ERROR domain error.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return shared.NewDomainError("VALIDATION_ERROR", e.Error())
}

func (e *ValidationError) add(field, code, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Code: code, Message: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ValidateReturnRequest checks every line of a return request against the
// order. Quantities for the same product are summed before comparing with
// what remains returnable, so returns awaiting review already hold theirs.
func ValidateReturnRequest(o *Order, items []ReturnItem) error {
	verr := &ValidationError{}
	if len(items) == 0 {
		verr.add("items", CodeNoReturnItems, "At least one item must be returned")
		return verr
	}
	requested := make(map[string]int)
	for idx, ri := range items {
		field := fmt.Sprintf("items[%d]", idx)
		if _, ok := o.FindItemByProduct(ri.ProductID); !ok {
			verr.add(field+".productId", CodeUnknownProduct, "Product is not part of this order")
			continue
		}
		if ri.Quantity <= 0 {
			verr.add(field+".quantity", CodeInvalidReturnQuantity, "Quantity must be positive")
			continue
		}
		if strings.TrimSpace(ri.Reason) == "" {
			verr.add(field+".reason", CodeReturnReasonRequired, "A reason is required")
		}
		requested[ri.ProductID] += ri.Quantity
		if remaining := RemainingReturnable(o, ri.ProductID); requested[ri.ProductID] > remaining {
			verr.add(field+".quantity", CodeInvalidReturnQuantity,
				fmt.Sprintf("Quantity exceeds remaining returnable quantity %d", remaining))
		}
	}
	return verr.orNil()
}

// ValidateAssignments checks that every unassigned item receives a chef from
// its own department
func ValidateAssignments(o *Order, assignments []ItemAssignment) error {
	verr := &ValidationError{}
	byItem := make(map[string]ItemAssignment, len(assignments))
	for _, a := range assignments {
		byItem[a.ItemID] = a
	}
	for _, item := range o.UnassignedItems() {
		field := "items." + item.ID
		a, ok := byItem[item.ID]
		if !ok || a.AssignedTo == nil || a.AssignedTo.UserID == "" {
			verr.add(field, CodeNoChefSelected,
				fmt.Sprintf("Select a chef for %s", item.Product.Name))
			continue
		}
		dept := item.Product.Department.ID
		if dept != "" && a.AssignedTo.Department.ID != "" && a.AssignedTo.Department.ID != dept {
			verr.add(field, CodeChefDepartment, "Chef does not belong to the item's department")
		}
	}
	for _, a := range assignments {
		if _, ok := o.FindItem(a.ItemID); !ok {
			verr.add("items."+a.ItemID, shared.ErrNotFound.Code, "Item is not part of this order")
		}
	}
	return verr.orNil()
}
