// Package realtime fans task and share change events out to subscribed
// clients. Consumers treat events purely as invalidation triggers and
// refetch; no row data travels on the feed.
package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Tables the feed reports on.
const (
	TableTasks      = "tasks"
	TableTaskShares = "task_shares"
)

// Actions carried by an event.
const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Event marks one insert/update/delete on a watched table.
type Event struct {
	Table  string `json:"table"`
	Action string `json:"action"`
}

// Subscriber is one connected client's handle on the feed. Events arrives on
// C; Close releases the handle.
type Subscriber struct {
	ID  uuid.UUID
	C   chan Event
	hub *Hub
}

// Close unregisters the subscriber and releases its channel.
func (s *Subscriber) Close() {
	s.hub.unsubscribe(s.ID)
}

// Hub is the in-process broadcast point for change events.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*Subscriber
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]*Subscriber),
	}
}

// Subscribe registers a new client. The returned subscriber must be closed
// when the consuming scope exits.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID:  uuid.New(),
		C:   make(chan Event, 16),
		hub: h,
	}

	h.mu.Lock()
	h.subscribers[sub.ID] = sub
	h.mu.Unlock()

	return sub
}

func (h *Hub) unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(sub.C)
	}
}

// Publish delivers an event to every subscriber. A subscriber whose buffer
// is full is skipped rather than blocking the publisher; a dropped event is
// harmless since any later event triggers the same refetch.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		select {
		case sub.C <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
