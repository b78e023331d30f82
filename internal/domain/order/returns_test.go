package order

import (
	"errors"
	"testing"

	"github.com/bakery/orderdesk/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldCodes(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	codes := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		codes = append(codes, f.Code)
	}
	return codes
}

func TestValidateReturnRequest(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		err := ValidateReturnRequest(deliveredOrder(), []ReturnItem{{ProductID: "prod-bread", Quantity: 4, Reason: "damaged"}})
		assert.NoError(t, err)
	})

	t.Run("quantity exceeds remaining", func(t *testing.T) {
		o := deliveredOrder()
		o.Items[0].ReturnedQuantity = 8

		err := ValidateReturnRequest(o, []ReturnItem{{ProductID: "prod-bread", Quantity: 3, Reason: "damaged"}})

		assert.Equal(t, []string{CodeInvalidReturnQuantity}, fieldCodes(t, err))
	})

	t.Run("lines for the same product are summed", func(t *testing.T) {
		err := ValidateReturnRequest(deliveredOrder(), []ReturnItem{
			{ProductID: "prod-bread", Quantity: 6, Reason: "damaged"},
			{ProductID: "prod-bread", Quantity: 6, Reason: "stale"},
		})
		assert.Equal(t, []string{CodeInvalidReturnQuantity}, fieldCodes(t, err))
	})

	t.Run("pending returns hold their quantity", func(t *testing.T) {
		o := deliveredOrder()
		o.Returns = []OrderReturn{{ReturnID: "r1", Status: ReturnStatusPendingApproval,
			Items: []ReturnItem{{ProductID: "prod-bread", Quantity: 10, Reason: "damaged"}}}}

		err := ValidateReturnRequest(o, []ReturnItem{{ProductID: "prod-bread", Quantity: 10, Reason: "damaged"}})
		assert.Equal(t, []string{CodeInvalidReturnQuantity}, fieldCodes(t, err))
		assert.Equal(t, 0, RemainingReturnable(o, "prod-bread"))

		o.Returns[0].Status = ReturnStatusRejected
		assert.NoError(t, ValidateReturnRequest(o, []ReturnItem{{ProductID: "prod-bread", Quantity: 10, Reason: "damaged"}}))
	})

	t.Run("two requests against a partly pending item", func(t *testing.T) {
		o := deliveredOrder()
		o.Returns = []OrderReturn{{ReturnID: "r1", Status: ReturnStatusPendingApproval,
			Items: []ReturnItem{{ProductID: "prod-bread", Quantity: 6, Reason: "stale"}}}}

		assert.NoError(t, ValidateReturnRequest(o, []ReturnItem{{ProductID: "prod-bread", Quantity: 4, Reason: "damaged"}}))
		o.Returns = append(o.Returns, OrderReturn{ReturnID: "r2", Status: ReturnStatusPendingApproval,
			Items: []ReturnItem{{ProductID: "prod-bread", Quantity: 4, Reason: "damaged"}}})

		err := ValidateReturnRequest(o, []ReturnItem{{ProductID: "prod-bread", Quantity: 1, Reason: "damaged"}})
		assert.Equal(t, []string{CodeInvalidReturnQuantity}, fieldCodes(t, err))
	})

	t.Run("empty, unknown and reasonless lines", func(t *testing.T) {
		assert.Equal(t, []string{CodeNoReturnItems}, fieldCodes(t, ValidateReturnRequest(deliveredOrder(), nil)))

		err := ValidateReturnRequest(deliveredOrder(), []ReturnItem{
			{ProductID: "prod-x", Quantity: 1, Reason: "x"},
			{ProductID: "prod-cake", Quantity: 0, Reason: "x"},
			{ProductID: "prod-cake", Quantity: 1},
		})
		assert.Equal(t, []string{CodeUnknownProduct, CodeInvalidReturnQuantity, CodeReturnReasonRequired}, fieldCodes(t, err))
	})

	t.Run("unwraps to a validation domain error", func(t *testing.T) {
		err := ValidateReturnRequest(deliveredOrder(), nil)
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "VALIDATION_ERROR", de.Code)
	})
}

func TestValidateAssignments(t *testing.T) {
	t.Run("all unassigned items covered", func(t *testing.T) {
		err := ValidateAssignments(newTestOrder(OrderStatusApproved), []ItemAssignment{
			{ItemID: "item-1", AssignedTo: &chefAli},
			{ItemID: "item-2", AssignedTo: &chefSara},
		})
		assert.NoError(t, err)
	})

	t.Run("missing chef for a department", func(t *testing.T) {
		err := ValidateAssignments(newTestOrder(OrderStatusApproved), []ItemAssignment{
			{ItemID: "item-1", AssignedTo: &chefAli},
		})
		assert.Equal(t, []string{CodeNoChefSelected}, fieldCodes(t, err))
	})

	t.Run("chef from another department", func(t *testing.T) {
		err := ValidateAssignments(newTestOrder(OrderStatusApproved), []ItemAssignment{
			{ItemID: "item-1", AssignedTo: &chefSara},
			{ItemID: "item-2", AssignedTo: &chefSara},
		})
		assert.Equal(t, []string{CodeChefDepartment}, fieldCodes(t, err))
	})
}
