package shared

import "context"

// EventHandler consumes decoded realtime events for one dashboard session.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event names handled; nil means all of them.
	EventTypes() []string
}

// EventBus fans events out to the handlers subscribed on it. Subscribe
// falls back to the handler's own EventTypes when no names are given.
type EventBus interface {
	Publish(ctx context.Context, events ...DomainEvent) error
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
