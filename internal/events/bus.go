package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(event *Event)

// SubscriptionID identifies a subscription for Unsubscribe
type SubscriptionID uint64

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// Bus is an in-process publish/subscribe event bus. Safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	nextID SubscriptionID
	subs   map[EventType][]subscription
	log    zerolog.Logger
}

// NewBus creates an empty bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[EventType][]subscription),
		log:  log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for one event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs[eventType] = append(b.subs[eventType], subscription{id: b.nextID, handler: handler})
	return b.nextID
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subs {
		for i, s := range subs {
			if s.id != id {
				continue
			}
			remaining := append(subs[:i:i], subs[i+1:]...)
			if len(remaining) == 0 {
				delete(b.subs, eventType)
			} else {
				b.subs[eventType] = remaining
			}
			return
		}
	}
}

// Emit publishes an event built from data. userID may be empty for system events.
func (b *Bus) Emit(module, userID string, data EventData) {
	b.Publish(&Event{
		Type:      data.EventType(),
		Module:    module,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

// Publish delivers an event to every handler subscribed to its type.
// A panicking handler is logged and does not affect the others.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[event.Type]))
	copy(subs, b.subs[event.Type])
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s, event)
	}
}

func (b *Bus) deliver(s subscription, event *Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("event_type", string(event.Type)).
				Msg("Event handler panicked")
		}
	}()
	s.handler(event)
}

// SubscriberCount returns the number of handlers for an event type
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventType])
}
