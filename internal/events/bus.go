package events

import (
	"context"
	"errors"
	"sync"
)

// DefaultBusCapacity is the per-subscriber buffer size used by NewBus.
const DefaultBusCapacity = 64

// ErrBusClosed is returned by Subscription.Next after the bus shuts down
// and the subscriber has drained its buffer.
var ErrBusClosed = errors.New("event bus closed")

// Bus is an in-process, multi-subscriber broadcast of timer events.
//
// Publishing never blocks: each subscriber has a bounded FIFO buffer, and
// when a slow subscriber's buffer is full the oldest buffered event is
// dropped and counted. The subscriber learns how many events it missed on
// its next receive. All subscribers observe delivered events in publish
// order.
type Bus struct {
	mu       sync.Mutex
	subs     map[uint64]*Subscription
	nextID   uint64
	capacity int
	closed   bool
}

// NewBus creates a bus with the given per-subscriber buffer capacity.
// Capacities below 1 fall back to DefaultBusCapacity.
func NewBus(capacity int) *Bus {
	if capacity < 1 {
		capacity = DefaultBusCapacity
	}
	return &Bus{
		subs:     make(map[uint64]*Subscription),
		capacity: capacity,
	}
}

// Subscribe registers a new subscriber. Events published before Subscribe
// returns are not delivered to it.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		bus:   b,
		id:    b.nextID,
		buf:   make([]Event, 0, b.capacity),
		ready: make(chan struct{}, 1),
	}
	b.nextID++
	if b.closed {
		sub.closed = true
	} else {
		b.subs[sub.id] = sub
	}
	return sub
}

// Publish broadcasts the event to every current subscriber without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		sub.push(e, b.capacity)
	}
}

// Close shuts the bus down. Subscribers drain whatever is buffered and then
// receive ErrBusClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		sub.close()
		delete(b.subs, id)
	}
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		sub.close()
		delete(b.subs, id)
	}
}

// Subscription is one subscriber's cursor into the bus.
type Subscription struct {
	bus *Bus
	id  uint64

	mu      sync.Mutex
	buf     []Event
	dropped uint64
	closed  bool
	ready   chan struct{}
}

func (s *Subscription) push(e Event, capacity int) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.buf) >= capacity {
		// Drop the oldest event so the publisher never stalls.
		s.buf = s.buf[1:]
		s.dropped++
	}
	s.buf = append(s.buf, e)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Next returns the next buffered event along with the number of events that
// were dropped since the previous receive because this subscriber fell
// behind. It blocks until an event arrives, the context is done, or the
// subscription closes with its buffer drained.
func (s *Subscription) Next(ctx context.Context) (Event, uint64, error) {
	for {
		s.mu.Lock()
		if len(s.buf) > 0 {
			e := s.buf[0]
			s.buf = s.buf[1:]
			missed := s.dropped
			s.dropped = 0
			s.mu.Unlock()
			return e, missed, nil
		}
		if s.closed {
			s.mu.Unlock()
			return Event{}, 0, ErrBusClosed
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, 0, ctx.Err()
		case <-s.ready:
		}
	}
}

// Cancel unsubscribes. Pending buffered events remain readable via Next
// until drained, after which Next returns ErrBusClosed.
func (s *Subscription) Cancel() {
	if s.bus != nil {
		s.bus.unsubscribe(s.id)
	}
}
