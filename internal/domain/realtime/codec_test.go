package realtime

import (
	"errors"
	"testing"

	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame_AllInboundEvents(t *testing.T) {
	tests := []struct {
		name  EventName
		data  string
		check func(t *testing.T, ev Event)
	}{
		{EventNewOrderFromBranch, `{"order":{"id":"o1","orderNumber":"N-1","status":"pending","items":[]}}`, func(t *testing.T, ev Event) {
			require.NotNil(t, ev.FullOrder())
			assert.Equal(t, "N-1", ev.FullOrder().OrderNumber)
		}},
		{EventOrderApprovedForBranch, `{"orderId":"o1","changedBy":"u1"}`, nil},
		{EventTaskAssigned, `{"orderId":"o1","items":[{"_id":"i1","assignedTo":{"userId":"c1","name":"Ali"},"status":"assigned"}]}`, func(t *testing.T, ev Event) {
			items := ev.(*TaskAssigned).Items
			require.Len(t, items, 1)
			assert.Equal(t, "c1", items[0].AssignedTo.UserID)
		}},
		{EventTaskCompleted, `{"orderId":"o1","itemId":"i1"}`, nil},
		{EventOrderCompletedByChefs, `{"orderId":"o1"}`, nil},
		{EventOrderInTransitToBranch, `{"orderId":"o1"}`, nil},
		{EventBranchConfirmedReceipt, `{"orderId":"o1"}`, nil},
		{EventOrderStatusUpdated, `{"orderId":"o1","status":"approved"}`, func(t *testing.T, ev Event) {
			assert.Equal(t, order.OrderStatusApproved, ev.(*OrderStatusUpdated).Status)
			assert.Nil(t, ev.FullOrder())
		}},
		{EventItemStatusUpdated, `{"orderId":"o1","itemId":"i1","status":"in_progress"}`, nil},
		{EventReturnStatusUpdated, `{"orderId":"o1","returnId":"r1","status":"approved","adjustedTotal":"80"}`, func(t *testing.T, ev Event) {
			e := ev.(*ReturnStatusUpdated)
			require.NotNil(t, e.AdjustedTotal)
			assert.Equal(t, "80", e.AdjustedTotal.String())
		}},
		{EventMissingAssignments, `{"orderId":"o1","itemIds":["i2"]}`, nil},
		{EventReturnCreated, `{"orderId":"o1","returnData":{"returnId":"r1","status":"pending","items":[{"productId":"p1","quantity":2,"reason":"damaged"}]}}`, func(t *testing.T, ev Event) {
			assert.Equal(t, order.ReturnStatusPendingApproval, ev.(*ReturnCreated).Return.Status)
		}},
	}

	require.Len(t, tests, len(InboundEvents))
	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			raw := []byte(`{"event":"` + string(tt.name) + `","data":` + tt.data + `}`)

			ev, err := DecodeFrame(raw)

			require.NoError(t, err)
			assert.Equal(t, tt.name, ev.Name())
			assert.Equal(t, string(tt.name), ev.EventType())
			assert.Equal(t, "o1", ev.OrderID())
			assert.Equal(t, "o1", ev.AggregateID())
			assert.Equal(t, AggregateTypeOrder, ev.AggregateType())
			assert.Len(t, ev.EventID(), 32)
			if tt.check != nil {
				tt.check(t, ev)
			}
		})
	}
}

func TestDecodeFrame_BareOrderPayload(t *testing.T) {
	ev, err := DecodeFrame([]byte(`{"event":"newOrderFromBranch","data":{"id":"o9","status":"pending"}}`))

	require.NoError(t, err)
	assert.Equal(t, "o9", ev.OrderID())
	assert.Equal(t, order.OrderStatusPending, ev.FullOrder().Status)
}

func TestDecodeFrame_Rejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", `{"event":`, ErrMalformedFrame},
		{"unknown event", `{"event":"orderExploded","data":{"orderId":"o1"}}`, ErrUnknownEvent},
		{"outbound event inbound", `{"event":"joinRoom","data":{"role":"admin","userId":"u"}}`, ErrUnknownEvent},
		{"missing data", `{"event":"orderStatusUpdated"}`, ErrInvalidPayload},
		{"missing order id", `{"event":"orderStatusUpdated","data":{"status":"approved"}}`, ErrInvalidPayload},
		{"bad order status", `{"event":"orderStatusUpdated","data":{"orderId":"o1","status":"shipped"}}`, ErrInvalidPayload},
		{"bad item status", `{"event":"itemStatusUpdated","data":{"orderId":"o1","itemId":"i1","status":"done"}}`, ErrInvalidPayload},
		{"empty assignments", `{"event":"taskAssigned","data":{"orderId":"o1","items":[]}}`, ErrInvalidPayload},
		{"assignment without item id", `{"event":"taskAssigned","data":{"orderId":"o1","items":[{"status":"assigned"}]}}`, ErrInvalidPayload},
		{"return without id", `{"event":"returnCreated","data":{"orderId":"o1","returnData":{"status":"pending"}}}`, ErrInvalidPayload},
		{"mismatched full order", `{"event":"orderStatusUpdated","data":{"orderId":"o1","status":"approved","order":{"id":"o2"}}}`, ErrInvalidPayload},
		{"wrong field type", `{"event":"taskCompleted","data":{"orderId":42,"itemId":"i1"}}`, ErrInvalidPayload},
		{"new order without order", `{"event":"newOrderFromBranch","data":{"orderId":"o1"}}`, ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeFrame([]byte(tt.raw))
			assert.Nil(t, ev)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestDecode_EventIDs(t *testing.T) {
	raw := []byte(`{"event":"orderStatusUpdated","data":{"orderId":"o1","status":"approved"}}`)

	first, err := DecodeFrame(raw)
	require.NoError(t, err)
	second, err := DecodeFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, first.EventID(), second.EventID(), "redelivery shares an id")

	other, err := DecodeFrame([]byte(`{"event":"orderStatusUpdated","data":{"orderId":"o1","status":"cancelled"}}`))
	require.NoError(t, err)
	assert.NotEqual(t, first.EventID(), other.EventID())

	numbered, err := DecodeFrame([]byte(`{"event":"orderStatusUpdated","eventId":"srv-7","data":{"orderId":"o1","status":"approved"}}`))
	require.NoError(t, err)
	assert.Equal(t, "srv-7", numbered.EventID())
}

func TestEncode_JoinRoom(t *testing.T) {
	raw, err := Encode(EventJoinRoom, NewJoinRoom(order.Actor{UserID: "u1", Role: order.RoleBranch, BranchID: "b1"}))

	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"joinRoom","data":{"role":"branch","userId":"u1","branchId":"b1"}}`, string(raw))
}

func TestRoomsFor(t *testing.T) {
	assert.Equal(t, []string{"admin", "production"}, RoomsFor(order.Actor{Role: order.RoleAdmin}))
	assert.Equal(t, []string{"production"}, RoomsFor(order.Actor{Role: order.RoleProduction}))
	assert.Equal(t, []string{"branch-b1"}, RoomsFor(order.Actor{Role: order.RoleBranch, BranchID: "b1"}))
	assert.Empty(t, RoomsFor(order.Actor{Role: order.RoleBranch}))
	assert.Equal(t, []string{"chef-c1", "department-d1"}, RoomsFor(order.Actor{UserID: "c1", Role: order.RoleChef, DepartmentID: "d1"}))
}
