package dashboard

import (
	"sync"
	"time"

	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/domain/shared"
	"go.uber.org/zap"
)

// Listener is notified after every dispatch that changed the state.
// Listeners run on the dispatching goroutine and must not call Dispatch.
type Listener func(a Action, s State)

// Store is the single source of truth of one dashboard session.
// Dispatch is serialized; readers get immutable snapshots.
type Store struct {
	dispatchMu sync.Mutex

	mu    sync.RWMutex
	state State

	listenersMu sync.RWMutex
	listeners   map[uint64]Listener
	nextID      uint64

	logger *zap.Logger
	clock  func() time.Time
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithClock overrides the time source used to stamp local patches
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithInitialState seeds the store, e.g. from a persisted snapshot
func WithInitialState(state State) StoreOption {
	return func(s *Store) {
		if state.Stale == nil {
			state.Stale = map[string]struct{}{}
		}
		s.state = state
	}
}

// NewStore creates an empty store
func NewStore(logger *zap.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		state:     NewState(),
		listeners: make(map[uint64]Listener),
		logger:    logger,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's clock reading
func (s *Store) Now() time.Time {
	return s.clock()
}

// Dispatch applies an action and notifies listeners when the state changed
func (s *Store) Dispatch(a Action) Result {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	return s.dispatchLocked(a)
}

func (s *Store) dispatchLocked(a Action) Result {
	s.mu.RLock()
	current := s.state
	s.mu.RUnlock()

	next, res := apply(current, a)

	if !res.Applied && !res.MarkedStale {
		s.logger.Debug("Action ignored",
			zap.String("action", a.ActionType()),
			zap.String("order_id", TargetOrder(a)),
			zap.String("reason", res.Reason),
			zap.Error(res.Err),
		)
		return res
	}
	if res.MarkedStale && res.Err != nil {
		s.logger.Warn("Patch conflicts with local order, marked stale",
			zap.String("action", a.ActionType()),
			zap.String("order_id", TargetOrder(a)),
			zap.Error(res.Err),
		)
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	s.notify(a, next)
	return res
}

func (s *Store) notify(a Action, state State) {
	s.listenersMu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		s.callListener(l, a, state)
	}
}

func (s *Store) callListener(l Listener, a Action, state State) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Store listener panicked",
				zap.String("action", a.ActionType()),
				zap.Any("panic", r),
			)
		}
	}()
	l(a, state)
}

// Subscribe registers a listener and returns a func that removes it
func (s *Store) Subscribe(l Listener) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// Snapshot returns the current state. Callers must treat it as read-only.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Order returns a copy of one order
func (s *Store) Order(orderID string) (*order.Order, bool) {
	state := s.Snapshot()
	idx := state.IndexOf(orderID)
	if idx < 0 {
		return nil, false
	}
	return state.Orders[idx].Clone(), true
}

// Acquire adds orderID to the in-flight set. It fails with
// ErrSubmissionPending while a submission for the same order is in flight,
// whatever other orders are submitting meanwhile. The returned release
// removes only orderID and is safe to call more than once.
func (s *Store) Acquire(orderID string) (func(), error) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	if s.Snapshot().IsSubmitting(orderID) {
		return nil, shared.ErrSubmissionPending
	}
	s.dispatchLocked(SetSubmitting{OrderID: orderID})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.Dispatch(ReleaseSubmitting{OrderID: orderID})
		})
	}, nil
}
