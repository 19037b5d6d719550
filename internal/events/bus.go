package events

import (
	"container/ring"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// Handler receives published events.
type Handler func(Event)

// UnsubscribeFunc removes the subscription it was returned for.
type UnsubscribeFunc func()

type handlerEntry struct {
	id      uint64
	handler Handler
}

const wildcard Kind = "*"

// Bus fans events out to subscribers synchronously, in subscription order.
// A panicking handler is logged and does not stop delivery to the rest.
type Bus struct {
	subscribers map[Kind][]handlerEntry
	nextID      atomic.Uint64
	mu          sync.RWMutex

	history     *ring.Ring
	historySize int
	historyMu   sync.RWMutex
}

// NewBus creates a bus keeping the last historySize events.
func NewBus(historySize int) *Bus {
	if historySize < 1 {
		historySize = 50
	}
	return &Bus{
		subscribers: make(map[Kind][]handlerEntry),
		history:     ring.New(historySize),
		historySize: historySize,
	}
}

// Subscribe registers handler for one kind.
func (b *Bus) Subscribe(kind Kind, handler Handler) UnsubscribeFunc {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID.Add(1)
	b.subscribers[kind] = append(b.subscribers[kind], handlerEntry{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		handlers := b.subscribers[kind]
		for i, h := range handlers {
			if h.id == id {
				b.subscribers[kind] = append(handlers[:i:i], handlers[i+1:]...)
				return
			}
		}
	}
}

// SubscribeAll registers handler for every kind.
func (b *Bus) SubscribeAll(handler Handler) UnsubscribeFunc {
	return b.Subscribe(wildcard, handler)
}

// Publish records ev and delivers it. A nil bus drops the event.
func (b *Bus) Publish(ev Event) {
	if b == nil || ev == nil {
		return
	}
	b.historyMu.Lock()
	b.history.Value = ev
	b.history = b.history.Next()
	b.historyMu.Unlock()

	b.mu.RLock()
	kind := ev.Kind()
	entries := make([]handlerEntry, 0, len(b.subscribers[kind])+len(b.subscribers[wildcard]))
	entries = append(entries, b.subscribers[kind]...)
	entries = append(entries, b.subscribers[wildcard]...)
	b.mu.RUnlock()

	for _, entry := range entries {
		deliver(entry.handler, ev)
	}
}

func deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("event handler for %s panicked: %v", ev.Kind(), fmt.Sprint(r))
		}
	}()
	h(ev)
}

// History returns recent events, newest first.
func (b *Bus) History(limit int) []Event {
	if limit <= 0 || limit > b.historySize {
		limit = b.historySize
	}

	b.historyMu.RLock()
	defer b.historyMu.RUnlock()

	out := make([]Event, 0, limit)
	r := b.history.Prev()
	for i := 0; i < limit; i++ {
		if ev, ok := r.Value.(Event); ok {
			out = append(out, ev)
		}
		r = r.Prev()
	}
	return out
}

// SubscriberCount returns the number of handlers for kind.
func (b *Bus) SubscriberCount(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[kind])
}

// Clear drops every subscription.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = make(map[Kind][]handlerEntry)
}
