package notify

import (
	"context"
	"log/slog"
	"sync"
)

const subscriberBuffer = 16

type subscriber struct {
	ch chan Notification
}

// Hub fans notifications out to the live subscribers of each learner, such
// as open websocket connections. Sends never block: a subscriber whose
// buffer is full misses the notification.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

// Subscribe registers a subscriber for the learner. The returned cancel
// function unregisters it and closes the channel; it is safe to call more
// than once.
func (h *Hub) Subscribe(learnerID string) (<-chan Notification, func()) {
	s := &subscriber{ch: make(chan Notification, subscriberBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}
	}
	set := h.subs[learnerID]
	if set == nil {
		set = make(map[*subscriber]struct{})
		h.subs[learnerID] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() { h.remove(learnerID, s) })
	}
}

func (h *Hub) remove(learnerID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subs[learnerID]
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, learnerID)
	}
	close(s.ch)
}

// Notify delivers n to every subscriber of its learner.
func (h *Hub) Notify(_ context.Context, n Notification) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs[n.LearnerID] {
		select {
		case s.ch <- n:
		default:
			slog.Warn("dropping notification for slow subscriber",
				"learner_id", n.LearnerID,
				"notification_id", n.ID,
			)
		}
	}
	return nil
}

// Subscribers returns the number of live subscribers for a learner.
func (h *Hub) Subscribers(learnerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[learnerID])
}

// Close disconnects every subscriber. Later subscriptions receive a closed
// channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for learnerID, set := range h.subs {
		for s := range set {
			close(s.ch)
		}
		delete(h.subs, learnerID)
	}
}
