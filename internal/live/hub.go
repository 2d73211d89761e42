// Package live provides push delivery of discovery session updates over
// WebSocket. Polling the status endpoint remains the primary contract; this
// feed is additive for dashboards that want immediate updates.
package live

import (
	"log/slog"
	"sync"

	"github.com/pregamehq/discovery-server/internal/discovery"
)

const subscriberBuffer = 16

// Hub fans session snapshots out to WebSocket subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *discovery.Snapshot]struct{}
}

// NewHub creates a new hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan *discovery.Snapshot]struct{}),
	}
}

// Notify implements discovery.Notifier. Slow subscribers are skipped rather
// than blocking the pipeline; they catch up on the next update or by polling.
func (h *Hub) Notify(sessionID string, snapshot *discovery.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[sessionID] {
		select {
		case ch <- snapshot:
		default:
			slog.Debug("live subscriber lagging, dropping update", "session_id", sessionID)
		}
	}
}

// Subscribe registers a listener for one session's updates. The returned
// cancel function must be called when the listener goes away.
func (h *Hub) Subscribe(sessionID string) (<-chan *discovery.Snapshot, func()) {
	ch := make(chan *discovery.Snapshot, subscriberBuffer)

	h.mu.Lock()
	if _, ok := h.subscribers[sessionID]; !ok {
		h.subscribers[sessionID] = make(map[chan *discovery.Snapshot]struct{})
	}
	h.subscribers[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if subs, ok := h.subscribers[sessionID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.subscribers, sessionID)
			}
		}
	}
	return ch, cancel
}

// SubscriberCount returns the number of listeners for a session.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[sessionID])
}

// Ensure Hub implements the orchestrator's notifier contract.
var _ discovery.Notifier = (*Hub)(nil)
