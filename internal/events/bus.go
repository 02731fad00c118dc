package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher. Handlers run asynchronously.
// A nil *Bus discards everything, so controllers can run without one.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers of its type.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	switch e := ev.(type) {
	case FanChecked:
		event.Publish(b.dispatcher, e)
	case ButtonActivated:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type it accepts and returns an
// unsubscribe function. Unknown handler types are ignored.
// Usage: unsub := bus.Subscribe(func(e FanChecked) { ... })
func (b *Bus) Subscribe(handler any) func() {
	if b == nil {
		return func() {}
	}
	switch h := handler.(type) {
	case func(FanChecked):
		return event.Subscribe(b.dispatcher, h)
	case func(ButtonActivated):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
