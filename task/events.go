package task

import (
	"sync"
	"time"
)

// Event records one task status transition.
type Event struct {
	TaskID    string    `json:"task_id"`
	From      Status    `json:"from,omitempty"`
	To        Status    `json:"to"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// eventBus fans transition events out to subscribers. A slow subscriber
// drops events rather than blocking the manager.
type eventBus struct {
	subs   map[int]chan Event
	next   int
	buffer int
	mu     sync.Mutex
	closed bool
}

func newEventBus(buffer int) *eventBus {
	if buffer <= 0 {
		buffer = 64
	}
	return &eventBus{
		subs:   make(map[int]chan Event),
		buffer: buffer,
	}
}

// subscribe returns an event channel and a cancel function. The channel is
// closed on cancel or bus shutdown.
func (b *eventBus) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *eventBus) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *eventBus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
