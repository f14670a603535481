package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
// Handlers run asynchronously on the dispatcher's goroutines.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// A nil Bus drops the event, so publishers need no nil checks.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	// kelindar/event is generic, so dispatch on the concrete type
	switch e := ev.(type) {
	case StateChangedEvent:
		event.Publish(b.dispatcher, e)
	case ChildStartedEvent:
		event.Publish(b.dispatcher, e)
	case ChildExitedEvent:
		event.Publish(b.dispatcher, e)
	case RestartScheduledEvent:
		event.Publish(b.dispatcher, e)
	case ProgressEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler's parameter type selects the events it receives.
// Returns an unsubscribe function; unknown handler types get a no-op.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(StateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ChildStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ChildExitedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RestartScheduledEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ProgressEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// SubscribeToChannel forwards events of type T to ch without blocking.
// Events are dropped while ch is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
