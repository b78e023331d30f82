package event

import (
	"slices"
	"sync"

	"github.com/bakery/orderdesk/internal/domain/shared"
)

// routeTable maps realtime event names to the handlers of one session.
// Handlers registered without names see every event and run after the
// named ones.
type routeTable struct {
	mu     sync.RWMutex
	byName map[string][]shared.EventHandler
	any    []shared.EventHandler
}

func newRouteTable() *routeTable {
	return &routeTable{byName: make(map[string][]shared.EventHandler)}
}

// add is idempotent per (handler, name) so a feed that reconnects and
// resubscribes never applies a frame twice.
func (t *routeTable) add(h shared.EventHandler, names ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(names) == 0 {
		if !slices.Contains(t.any, h) {
			t.any = append(t.any, h)
		}
		return
	}
	for _, name := range names {
		if !slices.Contains(t.byName[name], h) {
			t.byName[name] = append(t.byName[name], h)
		}
	}
}

func (t *routeTable) remove(h shared.EventHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.any = slices.DeleteFunc(t.any, func(x shared.EventHandler) bool { return x == h })
	for name, hs := range t.byName {
		hs = slices.DeleteFunc(hs, func(x shared.EventHandler) bool { return x == h })
		if len(hs) == 0 {
			delete(t.byName, name)
			continue
		}
		t.byName[name] = hs
	}
}

// route returns a snapshot, safe to iterate while handlers change.
func (t *routeTable) route(name string) []shared.EventHandler {
	t.mu.RLock()
	defer t.mu.RUnlock()

	named := t.byName[name]
	out := make([]shared.EventHandler, 0, len(named)+len(t.any))
	out = append(out, named...)
	return append(out, t.any...)
}
