package gateway

import (
	"sync"
	"sync/atomic"

	"github.com/flemzord/deltime/internal/handler"
)

// subscriberBuffer is the number of notices queued per subscriber before
// new ones are dropped for it.
const subscriberBuffer = 64

// Hub fans event notices out to websocket subscribers. Publish never blocks:
// a subscriber that falls behind loses notices.
type Hub struct {
	mu      sync.RWMutex
	subs    map[chan handler.Notice]struct{}
	dropped atomic.Uint64
}

// Compile-time interface check.
var _ handler.Publisher = (*Hub)(nil)

// NewHub returns a Hub without subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan handler.Notice]struct{})}
}

// Publish implements handler.Publisher.
func (h *Hub) Publish(n handler.Notice) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- n:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribe registers a subscriber. The returned function unregisters it and
// closes the channel.
func (h *Hub) Subscribe() (<-chan handler.Notice, func()) {
	ch := make(chan handler.Notice, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns the number of notices dropped for slow subscribers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
