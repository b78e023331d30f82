package dashboard

import (
	"sync"
	"testing"

	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestStore_DispatchNotifiesOnChange(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t))
	var got []string
	unsubscribe := store.Subscribe(func(a Action, s State) {
		got = append(got, a.ActionType())
	})

	store.Dispatch(SetOrders{Orders: []*order.Order{newTestOrder("o1", order.OrderStatusPending)}})
	store.Dispatch(UpdateOrderStatus{OrderID: "ghost", Status: order.OrderStatusApproved})
	store.Dispatch(SetFilterStatus{Status: order.OrderStatusPending})
	unsubscribe()
	unsubscribe()
	store.Dispatch(SetPage{Page: 2})

	assert.Equal(t, []string{"setOrders", "setFilterStatus"}, got)
}

func TestStore_ListenerPanicIsContained(t *testing.T) {
	store := NewStore(zap.NewNop())
	calls := 0
	store.Subscribe(func(Action, State) { panic("boom") })
	store.Subscribe(func(Action, State) { calls++ })

	assert.NotPanics(t, func() {
		store.Dispatch(SetSocketConnected{Connected: true})
	})
	assert.Equal(t, 1, calls)
	assert.True(t, store.Snapshot().SocketConnected)
}

func TestStore_OrderReturnsCopy(t *testing.T) {
	store := NewStore(zap.NewNop())
	store.Dispatch(SetOrders{Orders: []*order.Order{newTestOrder("o1", order.OrderStatusPending)}})

	o, ok := store.Order("o1")
	require.True(t, ok)
	o.Status = order.OrderStatusCancelled

	again, _ := store.Order("o1")
	assert.Equal(t, order.OrderStatusPending, again.Status)

	_, ok = store.Order("ghost")
	assert.False(t, ok)
}

func TestStore_SnapshotIsStableAcrossDispatch(t *testing.T) {
	store := NewStore(zap.NewNop())
	store.Dispatch(SetOrders{Orders: []*order.Order{newTestOrder("o1", order.OrderStatusPending)}})
	before := store.Snapshot()

	store.Dispatch(UpdateOrderStatus{OrderID: "o1", Status: order.OrderStatusApproved, At: testTime})

	assert.Equal(t, order.OrderStatusPending, before.Orders[0].Status)
	assert.Equal(t, order.OrderStatusApproved, store.Snapshot().Orders[0].Status)
}

func TestStore_Acquire(t *testing.T) {
	store := NewStore(zap.NewNop())

	release, err := store.Acquire("o1")
	require.NoError(t, err)
	assert.True(t, store.Snapshot().IsSubmitting("o1"))

	_, err = store.Acquire("o1")
	assert.ErrorIs(t, err, shared.ErrSubmissionPending)

	releaseOther, err := store.Acquire("o2")
	require.NoError(t, err)
	assert.Equal(t, []string{"o1", "o2"}, store.Snapshot().SubmittingIDs())

	release()
	assert.Equal(t, []string{"o2"}, store.Snapshot().SubmittingIDs(), "releasing o1 keeps o2 in flight")

	releaseOther()
	releaseOther()
	assert.Empty(t, store.Snapshot().SubmittingIDs())
}

func TestStore_AcquireInterleavedOrders(t *testing.T) {
	store := NewStore(zap.NewNop())

	releaseA, err := store.Acquire("A")
	require.NoError(t, err)
	releaseB, err := store.Acquire("B")
	require.NoError(t, err)

	_, err = store.Acquire("A")
	require.ErrorIs(t, err, shared.ErrSubmissionPending, "A is still in flight after B started")

	releaseB()
	assert.True(t, store.Snapshot().IsSubmitting("A"), "B's release leaves A in flight")
	_, err = store.Acquire("A")
	require.ErrorIs(t, err, shared.ErrSubmissionPending)

	releaseA()
	releaseAgain, err := store.Acquire("A")
	require.NoError(t, err)
	releaseAgain()
	assert.Empty(t, store.Snapshot().SubmittingIDs())
}

func TestStore_AcquireReleasedOnPanic(t *testing.T) {
	store := NewStore(zap.NewNop())

	func() {
		defer func() { _ = recover() }()
		release, err := store.Acquire("o1")
		require.NoError(t, err)
		defer release()
		panic("request blew up")
	}()

	assert.Empty(t, store.Snapshot().Submitting)
}

func TestStore_ConcurrentDispatchIsSerialized(t *testing.T) {
	store := NewStore(zap.NewNop())
	store.Dispatch(SetOrders{Orders: numberedOrders(10)})
	startVersion := store.Snapshot().Version

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Dispatch(SetPage{Page: i + 2})
			_ = store.Page(order.LocaleEn)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, startVersion+50, store.Snapshot().Version)
}

func TestStore_WithInitialState(t *testing.T) {
	seed := stateWith(newTestOrder("o1", order.OrderStatusPending))
	seed.Stale = nil

	store := NewStore(zap.NewNop(), WithInitialState(seed))

	assert.Len(t, store.Snapshot().Orders, 1)
	assert.NotPanics(t, func() {
		store.Dispatch(MarkStale{OrderID: "o1"})
	})
	assert.True(t, store.Snapshot().IsStale("o1"))
}
