package shared

import "context"

// EventHandler consumes domain events. EventTypes narrows delivery; an
// empty slice subscribes the handler to everything.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventBus fans domain events out to subscribed handlers. Publish must not
// block aggregate work; delivery happens on the bus's own goroutines
// between Start and Stop.
type EventBus interface {
	Publish(ctx context.Context, events ...DomainEvent) error
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
