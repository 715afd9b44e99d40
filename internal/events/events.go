// Package events implements fricon's in-process publish/subscribe bus: the
// dataset manager publishes lifecycle events here, and the RPC layer's
// Subscribe method fans them out to connected clients.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what happened to a dataset.
type Kind string

const (
	KindDatasetCreated Kind = "dataset.created"
	KindDatasetUpdated Kind = "dataset.updated"
	KindDatasetDeleted Kind = "dataset.deleted"

	// KindLagged is synthesized by the broker itself, not published by any
	// caller: it tells a subscriber that its buffer overflowed and at least
	// one older queued event was dropped.
	KindLagged Kind = "lagged"
)

// Event is one occurrence on the bus.
type Event struct {
	Kind      Kind
	DatasetID int64
	UUID      uuid.UUID
	Status    string
	Timestamp time.Time
}

// Subscription is a bounded, FIFO, best-effort delivery channel. Consumers
// range over Events until it is closed by Unsubscribe.
type Subscription struct {
	ch chan Event
}

// Events returns the receive-only channel subscribers read from.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Broker fans out published events to every live subscriber. Each
// subscriber has its own bounded buffer; a slow subscriber only ever loses
// its own events (drop-oldest, with a Lagged indication delivered in its
// place), never blocks a publisher or another subscriber.
type Broker struct {
	mu          sync.Mutex
	subscribers map[*Subscription]struct{}
	bufferSize  int
}

// NewBroker constructs a Broker whose subscriber channels hold bufferSize
// events before the oldest is dropped. bufferSize <= 0 selects 64.
func NewBroker(bufferSize int) *Broker {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Broker{
		subscribers: make(map[*Subscription]struct{}),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a new subscription. The caller must Unsubscribe when
// done to release the subscriber's buffer.
func (b *Broker) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan Event, b.bufferSize)}
	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes and closes a subscription.
func (b *Broker) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	close(sub.ch)
}

// Publish delivers ev to every current subscriber without blocking. If a
// subscriber's buffer is full, its oldest queued event is dropped and a
// KindLagged event takes its place.
func (b *Broker) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		deliver(sub.ch, ev)
	}
}

// deliver enqueues ev into ch. If ch is full, the oldest queued event is
// dropped to make room for a Lagged marker, and ev itself is enqueued right
// behind it, dropping further oldest entries if needed, since freeing one
// slot per overflow only ever buys room for one new item at a time.
func deliver(ch chan Event, ev Event) {
	select {
	case ch <- ev:
		return
	default:
	}

	enqueueDroppingOldest(ch, Event{Kind: KindLagged, Timestamp: ev.Timestamp})
	enqueueDroppingOldest(ch, ev)
}

// enqueueDroppingOldest sends ev, dropping the oldest queued event first if
// ch is full. Both selects default out rather than block, so a concurrent
// receiver racing to drain ch never stalls the publisher.
func enqueueDroppingOldest(ch chan Event, ev Event) {
	select {
	case ch <- ev:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}

// SubscriberCount reports the number of live subscriptions, mainly for
// diagnostics and tests.
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
