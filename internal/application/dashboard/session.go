package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/domain/shared"
	"go.uber.org/zap"
)

// User is the authenticated dashboard user a session belongs to
type User struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Role         order.Role   `json:"role"`
	BranchID     string       `json:"branchId,omitempty"`
	DepartmentID string       `json:"departmentId,omitempty"`
	Locale       order.Locale `json:"locale"`
}

// Actor returns the policy identity of the user
func (u User) Actor() order.Actor {
	return order.Actor{UserID: u.ID, Role: u.Role, BranchID: u.BranchID, DepartmentID: u.DepartmentID}
}

// Validate checks the user carries what its role needs
func (u User) Validate() error {
	if u.ID == "" {
		return shared.NewDomainError("INVALID_INPUT", "User id is required")
	}
	if !u.Role.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", "Unknown role: "+string(u.Role))
	}
	if u.Role == order.RoleBranch && u.BranchID == "" {
		return shared.NewDomainError("INVALID_INPUT", "Branch users need a branch id")
	}
	return nil
}

// Session is one user's live dashboard: its store, its notification hub
// and the realtime feed keeping the store in sync.
type Session struct {
	User  User
	Store *Store
	Hub   *Hub

	api    OrderAPI
	logger *zap.Logger

	mu    sync.RWMutex
	token string

	lastSeen  atomic.Int64
	stopFeed  func()
	unlisten  func()
	closeOnce sync.Once
}

// Token returns the bearer token forwarded to the order service
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) setToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Actor returns the policy identity of the session's user
func (s *Session) Actor() order.Actor {
	return s.User.Actor()
}

// Locale returns the display locale of the session's user
func (s *Session) Locale() order.Locale {
	return s.User.Locale
}

// Touch records activity
func (s *Session) Touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// LastSeen returns the time of the last recorded activity
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Notify pushes a toast to the session's open streams
func (s *Session) Notify(t Toast) {
	s.Hub.Publish(Notification{Kind: NotificationToast, Toast: &t, OrderID: t.OrderID})
}

// Refetch reloads one order from the order service and upserts it, which
// also clears its stale flag. An order the service no longer knows, or the
// user can no longer see, just loses the flag.
func (s *Session) Refetch(ctx context.Context, orderID string) error {
	o, err := s.api.GetOrder(ctx, s.Token(), orderID)
	if errors.Is(err, shared.ErrNotFound) {
		s.Store.Dispatch(ClearStale{OrderID: orderID})
		return nil
	}
	if err != nil {
		return fmt.Errorf("refetch order %s: %w", orderID, err)
	}
	if o == nil || !order.CanView(s.Actor(), o) {
		s.Store.Dispatch(ClearStale{OrderID: orderID})
		return nil
	}
	s.Store.Dispatch(AddOrder{Order: o})
	return nil
}

// RefetchStale refetches every order currently flagged stale
func (s *Session) RefetchStale(ctx context.Context) error {
	var errs []error
	for _, id := range s.Store.Snapshot().StaleIDs() {
		if err := s.Refetch(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reload replaces the whole collection with a fresh list from the order
// service
func (s *Session) Reload(ctx context.Context) error {
	orders, err := s.api.ListOrders(ctx, s.Token(), QueryFor(s.User))
	if err != nil {
		return fmt.Errorf("list orders: %w", err)
	}
	actor := s.Actor()
	visible := make([]*order.Order, 0, len(orders))
	for _, o := range orders {
		if o != nil && order.CanView(actor, o) {
			visible = append(visible, o)
		}
	}
	s.Store.Dispatch(SetOrders{Orders: visible})
	return nil
}

func (s *Session) publishChange(a Action, state State) {
	n := Notification{
		Kind:    NotificationState,
		Version: state.Version,
		Action:  a.ActionType(),
		OrderID: TargetOrder(a),
	}
	if sc, ok := a.(SetSocketConnected); ok {
		connected := sc.Connected
		n.Kind = NotificationSocket
		n.Connected = &connected
	}
	s.Hub.Publish(n)
}

// SessionManager owns the live sessions, one per user id
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	api       OrderAPI
	feed      Feed
	snapshots SnapshotStore
	metrics   Metrics
	logger    *zap.Logger

	idleTimeout time.Duration
	hubBuffer   int
	clock       func() time.Time

	baseCtx context.Context
	cancel  context.CancelFunc
}

// SessionOption configures a SessionManager
type SessionOption func(*SessionManager)

// WithFeed sets the realtime feed started for every session
func WithFeed(feed Feed) SessionOption {
	return func(m *SessionManager) { m.feed = feed }
}

// WithSnapshotStore enables warm start and snapshot persistence
func WithSnapshotStore(store SnapshotStore) SessionOption {
	return func(m *SessionManager) { m.snapshots = store }
}

// WithSessionMetrics sets the metrics sink
func WithSessionMetrics(metrics Metrics) SessionOption {
	return func(m *SessionManager) { m.metrics = metrics }
}

// WithIdleTimeout sets how long an unused session survives
func WithIdleTimeout(d time.Duration) SessionOption {
	return func(m *SessionManager) { m.idleTimeout = d }
}

// WithHubBuffer sets the per-stream notification buffer
func WithHubBuffer(n int) SessionOption {
	return func(m *SessionManager) { m.hubBuffer = n }
}

// WithSessionClock overrides the time source
func WithSessionClock(clock func() time.Time) SessionOption {
	return func(m *SessionManager) { m.clock = clock }
}

// NewSessionManager creates a session manager
func NewSessionManager(api OrderAPI, logger *zap.Logger, opts ...SessionOption) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &SessionManager{
		sessions:    make(map[string]*Session),
		api:         api,
		metrics:     noopMetrics{},
		logger:      logger,
		idleTimeout: 30 * time.Minute,
		hubBuffer:   defaultHubBuffer,
		clock:       time.Now,
		baseCtx:     ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open returns the user's session, creating it on first use. A new session
// is seeded from its snapshot, loaded from the order service and attached
// to the realtime feed.
func (m *SessionManager) Open(ctx context.Context, user User, token string) (*Session, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if sess, ok := m.Get(user.ID); ok {
		sess.setToken(token)
		return sess, nil
	}

	sess, err := m.newSession(ctx, user, token)
	if err != nil {
		return nil, err
	}

	if m.feed != nil {
		stop, err := m.feed.Start(m.baseCtx, sess)
		if err != nil {
			sess.shutdown()
			return nil, fmt.Errorf("start realtime feed: %w", err)
		}
		sess.stopFeed = stop
	}

	m.mu.Lock()
	if existing, ok := m.sessions[user.ID]; ok {
		m.mu.Unlock()
		sess.shutdown()
		existing.setToken(token)
		return existing, nil
	}
	m.sessions[user.ID] = sess
	count := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SessionsActive(ctx, count)
	m.logger.Info("Dashboard session opened",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.Int("orders", len(sess.Store.Snapshot().Orders)),
	)
	return sess, nil
}

func (m *SessionManager) newSession(ctx context.Context, user User, token string) (*Session, error) {
	logger := m.logger.With(zap.String("user_id", user.ID))
	storeOpts := []StoreOption{WithClock(m.clock)}

	warm := false
	if m.snapshots != nil {
		snap, err := m.snapshots.Load(ctx, user.ID)
		if err != nil {
			logger.Warn("Failed to load dashboard snapshot", zap.Error(err))
		} else if snap != nil {
			seed := Reduce(NewState(), SetOrders{Orders: snap.Orders})
			seed.View = snap.View
			storeOpts = append(storeOpts, WithInitialState(seed))
			warm = true
		}
	}

	sess := &Session{
		User:   user,
		Store:  NewStore(logger, storeOpts...),
		Hub:    NewHub(m.hubBuffer, logger),
		api:    m.api,
		logger: logger,
		token:  token,
	}
	sess.Touch(m.clock())

	if err := sess.Reload(ctx); err != nil {
		if !warm {
			return nil, err
		}
		logger.Warn("Initial order fetch failed, serving snapshot", zap.Error(err))
	}
	sess.unlisten = sess.Store.Subscribe(sess.publishChange)
	return sess, nil
}

// Get returns a live session and records activity on it
func (m *SessionManager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	m.mu.Unlock()
	if ok {
		sess.Touch(m.clock())
	}
	return sess, ok
}

// Len returns the number of live sessions
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops a session's feed, persists its snapshot and drops it
func (m *SessionManager) Close(ctx context.Context, userID string) error {
	sess := m.remove(userID)
	if sess == nil {
		return shared.ErrNotFound
	}
	sess.shutdown()
	m.saveSnapshot(ctx, sess)
	m.metrics.SessionsActive(ctx, m.Len())
	m.logger.Info("Dashboard session closed", zap.String("user_id", userID))
	return nil
}

func (m *SessionManager) remove(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return nil
	}
	delete(m.sessions, userID)
	return sess
}

func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		if s.stopFeed != nil {
			s.stopFeed()
		}
		if s.unlisten != nil {
			s.unlisten()
		}
		s.Hub.Close()
	})
}

func (m *SessionManager) saveSnapshot(ctx context.Context, sess *Session) {
	if m.snapshots == nil {
		return
	}
	state := sess.Store.Snapshot()
	err := m.snapshots.Save(ctx, Snapshot{
		UserID:  sess.User.ID,
		Orders:  state.Orders,
		View:    state.View,
		SavedAt: m.clock(),
	})
	if err != nil {
		sess.logger.Warn("Failed to save dashboard snapshot", zap.Error(err))
	}
}

// ReapIdle closes sessions idle for longer than the idle timeout that have
// no open streams. It returns the number of closed sessions.
func (m *SessionManager) ReapIdle(ctx context.Context) int {
	cutoff := m.clock().Add(-m.idleTimeout)

	m.mu.Lock()
	var idle []string
	for id, sess := range m.sessions {
		if sess.LastSeen().Before(cutoff) && sess.Hub.Len() == 0 {
			idle = append(idle, id)
		}
	}
	m.mu.Unlock()

	closed := 0
	for _, id := range idle {
		if err := m.Close(ctx, id); err == nil {
			closed++
		}
	}
	if closed > 0 {
		m.logger.Info("Reaped idle dashboard sessions", zap.Int("count", closed))
	}
	return closed
}

// Run reaps idle sessions until ctx is done, then shuts every session down
func (m *SessionManager) Run(ctx context.Context) {
	interval := m.idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Shutdown(context.Background())
			return
		case <-ticker.C:
			m.ReapIdle(ctx)
		}
	}
}

// Shutdown closes every session and stops all feeds
func (m *SessionManager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		_ = m.Close(ctx, id)
	}
	m.cancel()
}
