package order

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_TransitionTo(t *testing.T) {
	t.Run("pending order cancelled by production gains one history entry", func(t *testing.T) {
		o := newTestOrder(OrderStatusPending)

		require.NoError(t, AuthorizeTransition(productionActor, o, OrderStatusCancelled))
		require.NoError(t, o.TransitionTo(OrderStatusCancelled, productionActor.UserID, "", testTime))

		assert.Equal(t, OrderStatusCancelled, o.Status)
		require.Len(t, o.StatusHistory, 1)
		assert.Equal(t, OrderStatusCancelled, o.StatusHistory[0].Status)
		assert.Equal(t, "u-prod", o.StatusHistory[0].ChangedBy)
	})

	t.Run("illegal transition leaves history untouched", func(t *testing.T) {
		o := newTestOrder(OrderStatusDelivered)
		o.StatusHistory = []StatusHistoryEntry{{Status: OrderStatusDelivered, ChangedBy: "u-branch", ChangedAt: testTime}}

		err := o.TransitionTo(OrderStatusCancelled, "u-prod", "", testTime)

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrIllegalTransition))
		assert.Equal(t, OrderStatusDelivered, o.Status)
		assert.Len(t, o.StatusHistory, 1)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		o := newTestOrder(OrderStatusApproved)

		require.NoError(t, o.TransitionTo(OrderStatusApproved, "u-prod", "", testTime))
		assert.Empty(t, o.StatusHistory)
	})
}

func TestOrder_ApplyAssignments(t *testing.T) {
	assignments := []ItemAssignment{
		{ItemID: "item-1", AssignedTo: &chefAli, Status: ItemStatusAssigned},
		{ItemID: "item-2", AssignedTo: &chefSara},
	}

	t.Run("assigning every item moves approved order to in_production", func(t *testing.T) {
		o := newTestOrder(OrderStatusApproved)

		require.NoError(t, o.ApplyAssignments(assignments, testTime))

		assert.Equal(t, OrderStatusInProduction, o.Status)
		require.Len(t, o.StatusHistory, 1)
		assert.Equal(t, SystemActorName, o.StatusHistory[0].ChangedBy)
		for _, item := range o.Items {
			assert.Equal(t, ItemStatusAssigned, item.Status)
			assert.True(t, item.IsAssigned())
		}
	})

	t.Run("applying twice yields the same state", func(t *testing.T) {
		once := newTestOrder(OrderStatusApproved)
		require.NoError(t, once.ApplyAssignments(assignments, testTime))

		twice := newTestOrder(OrderStatusApproved)
		require.NoError(t, twice.ApplyAssignments(assignments, testTime))
		require.NoError(t, twice.ApplyAssignments(assignments, testTime))

		assert.Equal(t, once, twice)
	})

	t.Run("partial assignment keeps order approved", func(t *testing.T) {
		o := newTestOrder(OrderStatusApproved)

		require.NoError(t, o.ApplyAssignments(assignments[:1], testTime))

		assert.Equal(t, OrderStatusApproved, o.Status)
		assert.Len(t, o.UnassignedItems(), 1)
	})

	t.Run("status without assignee is rejected", func(t *testing.T) {
		o := newTestOrder(OrderStatusApproved)

		err := o.ApplyAssignments([]ItemAssignment{{ItemID: "item-1", Status: ItemStatusAssigned}}, testTime)

		assert.True(t, errors.Is(err, ErrAssigneeRequired))
	})

	t.Run("unknown items are skipped", func(t *testing.T) {
		o := newTestOrder(OrderStatusApproved)

		require.NoError(t, o.ApplyAssignments([]ItemAssignment{{ItemID: "ghost", AssignedTo: &chefAli}}, testTime))
		assert.Len(t, o.UnassignedItems(), 2)
	})

	t.Run("cancelled items do not block production", func(t *testing.T) {
		o := newTestOrder(OrderStatusApproved)
		o.Items[1].Status = ItemStatusCancelled

		require.NoError(t, o.ApplyAssignments(assignments[:1], testTime))
		assert.Equal(t, OrderStatusInProduction, o.Status)
	})
}

func TestOrder_ApplyItemStatus(t *testing.T) {
	t.Run("completing the last item completes the order", func(t *testing.T) {
		o := newTestOrder(OrderStatusInProduction)
		assignAll(o)

		for _, id := range []string{"item-1", "item-2"} {
			require.NoError(t, o.ApplyItemStatus(id, ItemStatusInProgress, testTime))
			require.NoError(t, o.ApplyItemStatus(id, ItemStatusCompleted, testTime))
		}

		assert.Equal(t, OrderStatusCompleted, o.Status)
		assert.NotNil(t, o.Items[0].StartedAt)
		assert.NotNil(t, o.Items[0].CompletedAt)
	})

	t.Run("pending item cannot start without a chef", func(t *testing.T) {
		o := newTestOrder(OrderStatusInProduction)

		err := o.ApplyItemStatus("item-1", ItemStatusAssigned, testTime)

		assert.True(t, errors.Is(err, ErrAssigneeRequired))
		assert.Equal(t, ItemStatusPending, o.Items[0].Status)
	})

	t.Run("skipping a step is illegal", func(t *testing.T) {
		o := newTestOrder(OrderStatusInProduction)
		assignAll(o)

		err := o.ApplyItemStatus("item-1", ItemStatusCompleted, testTime)
		assert.True(t, errors.Is(err, ErrIllegalTransition))
	})

	t.Run("unknown item", func(t *testing.T) {
		o := newTestOrder(OrderStatusInProduction)
		assert.True(t, errors.Is(o.ApplyItemStatus("ghost", ItemStatusAssigned, testTime), ErrItemNotFound))
	})
}

func TestOrder_Returns(t *testing.T) {
	newReturn := func(id string, qty int) OrderReturn {
		return OrderReturn{
			ReturnID:  id,
			Status:    ReturnStatusPendingApproval,
			Items:     []ReturnItem{{ProductID: "prod-bread", Quantity: qty, Reason: "damaged"}},
			CreatedAt: testTime,
		}
	}

	t.Run("approved return of 4 on first item gives adjusted total 80", func(t *testing.T) {
		o := deliveredOrder()
		require.NoError(t, o.AddReturn(newReturn("ret-1", 4)))

		require.NoError(t, o.SetReturnStatus("ret-1", ReturnStatusApproved, "ok", testTime))

		assert.True(t, decimal.NewFromInt(80).Equal(CalculateAdjustedTotal(o)), CalculateAdjustedTotal(o).String())
		ret, _ := o.FindReturn("ret-1")
		assert.Equal(t, "ok", ret.ReviewNotes)
		assert.NotNil(t, ret.ReviewedAt)
	})

	t.Run("repeated approval does not subtract twice", func(t *testing.T) {
		o := deliveredOrder()
		require.NoError(t, o.AddReturn(newReturn("ret-1", 4)))
		require.NoError(t, o.SetReturnStatus("ret-1", ReturnStatusApproved, "", testTime))
		require.NoError(t, o.SetReturnStatus("ret-1", ReturnStatusApproved, "", testTime))
		require.NoError(t, o.SetReturnStatus("ret-1", ReturnStatusProcessed, "", testTime))

		assert.True(t, decimal.NewFromInt(80).Equal(CalculateAdjustedTotal(o)))
	})

	t.Run("rejected return never reverts", func(t *testing.T) {
		o := deliveredOrder()
		require.NoError(t, o.AddReturn(newReturn("ret-1", 4)))
		require.NoError(t, o.SetReturnStatus("ret-1", ReturnStatusRejected, "", testTime))

		for _, s := range []ReturnStatus{ReturnStatusPendingApproval, ReturnStatusApproved, ReturnStatusProcessed} {
			assert.Error(t, o.SetReturnStatus("ret-1", s, "", testTime))
		}
		ret, _ := o.FindReturn("ret-1")
		assert.Equal(t, ReturnStatusRejected, ret.Status)
		assert.True(t, o.TotalAmount.Equal(CalculateAdjustedTotal(o)))
	})

	t.Run("duplicate return id is rejected", func(t *testing.T) {
		o := deliveredOrder()
		require.NoError(t, o.AddReturn(newReturn("ret-1", 4)))

		err := o.AddReturn(newReturn("ret-1", 2))

		assert.True(t, errors.Is(err, ErrDuplicateReturn))
		assert.Len(t, o.Returns, 1)
	})

	t.Run("adjusted total stays within bounds after any approvals", func(t *testing.T) {
		o := deliveredOrder()
		for i, qty := range []int{7, 9, 30, 1} {
			id := "ret-" + string(rune('a'+i))
			require.NoError(t, o.AddReturn(newReturn(id, qty)))
			require.NoError(t, o.SetReturnStatus(id, ReturnStatusApproved, "", testTime))

			adjusted := CalculateAdjustedTotal(o)
			assert.True(t, adjusted.LessThanOrEqual(o.TotalAmount))
			assert.False(t, adjusted.IsNegative())
		}
		// bread is capped at its ordered 10 units
		assert.True(t, decimal.NewFromInt(50).Equal(CalculateAdjustedTotal(o)))
	})

	t.Run("authoritative adjusted total is clamped", func(t *testing.T) {
		o := deliveredOrder()

		o.ApplyAuthoritativeAdjustedTotal(decimal.NewFromInt(150))
		assert.True(t, o.TotalAmount.Equal(CalculateAdjustedTotal(o)))

		o.ApplyAuthoritativeAdjustedTotal(decimal.NewFromInt(-3))
		assert.True(t, decimal.Zero.Equal(CalculateAdjustedTotal(o)))
	})
}

func TestOrder_Clone(t *testing.T) {
	o := newTestOrder(OrderStatusApproved)
	assignAll(o)
	adjusted := decimal.NewFromInt(90)
	o.AdjustedTotal = &adjusted
	o.Returns = []OrderReturn{{ReturnID: "r", Items: []ReturnItem{{ProductID: "prod-bread", Quantity: 1}}}}

	c := o.Clone()
	c.Items[0].AssignedTo.Name = "changed"
	c.Items[1].Status = ItemStatusInProgress
	c.Returns[0].Items[0].Quantity = 9
	*c.AdjustedTotal = decimal.NewFromInt(1)

	assert.Equal(t, "علي", o.Items[0].AssignedTo.Name)
	assert.Equal(t, ItemStatusAssigned, o.Items[1].Status)
	assert.Equal(t, 1, o.Returns[0].Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(90).Equal(*o.AdjustedTotal))
}
