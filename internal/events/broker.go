// Package events fans out dashboard events (notifications, refresh ticks and
// config reloads) to any number of listeners.
package events

import (
	"sync"
)

// Wildcard subscribes to every event type.
const Wildcard EventType = "*"

// Broker manages event distribution
type Broker struct {
	subscribers map[EventType][]chan Event
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  16,
	}
}

// Subscribe creates a subscription to specific event types. With no types
// the subscription receives everything.
func (b *Broker) Subscribe(eventTypes ...EventType) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	if b.closed {
		close(ch)
		return ch
	}

	if len(eventTypes) == 0 {
		eventTypes = []EventType{Wildcard}
	}
	for _, eventType := range eventTypes {
		b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broker) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var target chan Event
	for eventType, subscribers := range b.subscribers {
		kept := subscribers[:0]
		for _, sub := range subscribers {
			if (<-chan Event)(sub) == ch {
				target = sub
				continue
			}
			kept = append(kept, sub)
		}
		if len(kept) == 0 {
			delete(b.subscribers, eventType)
		} else {
			b.subscribers[eventType] = kept
		}
	}
	if target != nil {
		close(target)
	}
}

// Publish sends an event to all subscribers. A subscriber whose buffer is
// full misses the event.
func (b *Broker) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, ch := range b.subscribers[event.Type] {
		select {
		case ch <- event:
		default:
		}
	}
	if event.Type == Wildcard {
		return
	}
	for _, ch := range b.subscribers[Wildcard] {
		select {
		case ch <- event:
		default:
		}
	}
}

// PublishAsync sends an event asynchronously
func (b *Broker) PublishAsync(event Event) {
	go b.Publish(event)
}

// Close removes all subscriptions and closes their channels. Later
// publishes are dropped.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	seen := make(map[chan Event]bool)
	for _, subscribers := range b.subscribers {
		for _, ch := range subscribers {
			if !seen[ch] {
				seen[ch] = true
				close(ch)
			}
		}
	}
	b.subscribers = make(map[EventType][]chan Event)
}
