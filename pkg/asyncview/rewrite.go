package asyncview

import (
	"sync"

	"github.com/google/uuid"
)

// RewriteEvent is published after a view flow replaced the document.
type RewriteEvent struct {
	FlowID uuid.UUID
	TaskID string
	HTML   string
}

type subscriber struct {
	id int
	fn func(RewriteEvent)
}

// RewriteBus fans RewriteEvents out to subscribers. The zero value is ready
// to use and safe for concurrent use.
type RewriteBus struct {
	mu   sync.RWMutex
	next int
	subs []subscriber
}

// Subscribe registers fn and returns a function that removes it.
func (b *RewriteBus) Subscribe(fn func(RewriteEvent)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.subs = append(b.subs, subscriber{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish calls every subscriber with ev, in subscription order.
// Subscribers run on the publishing goroutine.
func (b *RewriteBus) Publish(ev RewriteEvent) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(ev)
	}
}
