// Package feed fans sealed blocks out to live subscribers, typically
// WebSocket clients of the block explorer.
package feed

import (
	"sync"

	"github.com/jmerrifield20/educoin/internal/ledger"
	"go.uber.org/zap"
)

// DefaultBuffer is the per-subscriber queue length used when none is set.
const DefaultBuffer = 16

// Subscription receives every block published after it was created.
// C is closed when the subscription is cancelled.
type Subscription struct {
	C  <-chan *ledger.Block
	ch chan *ledger.Block
}

// CountFunc is an optional callback invoked with the subscriber count
// whenever it changes.
type CountFunc func(n int)

// Hub is a thread-safe broadcast point for sealed blocks. Publish never
// blocks: a subscriber whose queue is full misses the block.
type Hub struct {
	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	buffer  int
	onCount CountFunc
	logger  *zap.Logger
}

// NewHub creates a Hub. buffer <= 0 selects DefaultBuffer.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// SetCountFunc registers fn to observe subscriber count changes.
func (h *Hub) SetCountFunc(fn CountFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCount = fn
}

// Subscribe registers a new subscription.
func (h *Hub) Subscribe() *Subscription {
	ch := make(chan *ledger.Block, h.buffer)
	s := &Subscription{C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[s] = struct{}{}
	h.notifyLocked()
	return s
}

// Unsubscribe removes s and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.ch)
	h.notifyLocked()
}

// Publish delivers a copy of b to every subscriber with room in its queue.
func (h *Hub) Publish(b *ledger.Block) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.ch <- b.Clone():
		default:
			h.logger.Warn("feed subscriber lagging; block dropped", zap.Int("index", b.Index))
		}
	}
}

// Count returns the number of active subscriptions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) notifyLocked() {
	if h.onCount != nil {
		h.onCount(len(h.subs))
	}
}
