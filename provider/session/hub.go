package session

import (
	"sync"

	"github.com/goliatone/go-guard"
)

// Hub fans identity changes out to the guards watching a session
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]guard.AuthStateHandler
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]guard.AuthStateHandler)}
}

// Subscribe registers handler for sid. The returned func is safe to call
// more than once.
func (h *Hub) Subscribe(sid string, handler guard.AuthStateHandler) guard.Unsubscribe {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[sid] == nil {
		h.subs[sid] = make(map[uint64]guard.AuthStateHandler)
	}
	h.subs[sid][id] = handler
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[sid], id)
			if len(h.subs[sid]) == 0 {
				delete(h.subs, sid)
			}
		})
	}
}

// Publish delivers identity to every handler of sid. Handlers run on the
// caller's goroutine, outside the hub lock.
func (h *Hub) Publish(sid string, identity guard.Identity) int {
	h.mu.Lock()
	handlers := make([]guard.AuthStateHandler, 0, len(h.subs[sid]))
	for _, handler := range h.subs[sid] {
		handlers = append(handlers, handler)
	}
	h.mu.Unlock()

	for _, handler := range handlers {
		handler(identity)
	}
	return len(handlers)
}

// Subscribers returns the number of handlers registered for sid
func (h *Hub) Subscribers(sid string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sid])
}
