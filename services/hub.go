// services/hub.go - In-process fan-out of notifications to live connections
package services

import (
	"context"
	"sync"
)

const subscriberBuffer = 16

// Hub delivers notifications to the user's open live connections.
// A slow subscriber drops messages rather than blocking the sender.
type Hub struct {
	mu   sync.RWMutex
	subs map[uint]map[chan Notification]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint]map[chan Notification]struct{})}
}

// Subscribe registers a receiver for userID. Call the returned func to leave.
func (h *Hub) Subscribe(userID uint) (<-chan Notification, func()) {
	ch := make(chan Notification, subscriberBuffer)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan Notification]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Subscribers(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

func (h *Hub) Notify(_ context.Context, n Notification) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[n.UserID] {
		select {
		case ch <- n:
		default:
		}
	}
	return nil
}
