package events

// Handler processes a single domain event.
type Handler func(event DomainEvent)

// Bus is a synchronous publish/subscribe hub. Handlers for an event type fire
// in registration order. A publish made from inside a handler is queued and
// dispatched after the current cycle completes, so a handler never observes a
// nested dispatch of its own mutation.
//
// The bus is not safe for concurrent use; the flow model runs on a single
// goroutine by contract.
type Bus struct {
	handlers    map[string][]Handler
	queue       []DomainEvent
	dispatching bool
}

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers a handler for one or more event types
func (b *Bus) Subscribe(handler Handler, eventTypes ...string) {
	for _, eventType := range eventTypes {
		b.handlers[eventType] = append(b.handlers[eventType], handler)
	}
}

// Publish delivers an event to all handlers subscribed to its type. Events
// published while a dispatch is in progress are deferred until it finishes.
func (b *Bus) Publish(event DomainEvent) {
	b.queue = append(b.queue, event)
	if b.dispatching {
		return
	}

	b.dispatching = true
	defer func() { b.dispatching = false }()

	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue = b.queue[1:]
		for _, handler := range b.handlers[next.GetEventType()] {
			handler(next)
		}
	}
}
