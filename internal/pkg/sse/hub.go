package sse

import (
	"sync"
	"sync/atomic"
)

const defaultBufferSize = 16

// Event is one message for a single user's live connections
type Event struct {
	UserID string
	Event  string
	Data   interface{}
}

type subscriber struct {
	ch   chan Event
	once sync.Once
}

// Hub fans events out to every open connection of a user. Publishing never
// blocks: a subscriber whose buffer is full misses the event and the loss is
// counted.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscriber]struct{}
	bufferSize  int
	dropped     atomic.Uint64
}

// NewHub creates a hub. An optional buffer size overrides the per-connection default.
func NewHub(bufferSize ...int) *Hub {
	size := defaultBufferSize
	if len(bufferSize) > 0 && bufferSize[0] > 0 {
		size = bufferSize[0]
	}
	return &Hub{
		subscribers: make(map[string]map[*subscriber]struct{}),
		bufferSize:  size,
	}
}

// Subscribe registers a connection for userID. The returned cleanup closes
// the channel and is safe to call more than once.
func (h *Hub) Subscribe(userID string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, h.bufferSize)}

	h.mu.Lock()
	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[*subscriber]struct{})
	}
	h.subscribers[userID][sub] = struct{}{}
	h.mu.Unlock()

	cleanup := func() {
		sub.once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[userID], sub)
			if len(h.subscribers[userID]) == 0 {
				delete(h.subscribers, userID)
			}
			close(sub.ch)
		})
	}

	return sub.ch, cleanup
}

// Publish sends event to every connection of userID and returns how many
// connections accepted it.
func (h *Hub) Publish(userID string, event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subscribers[userID] {
		select {
		case sub.ch <- event:
			delivered++
		default:
			h.dropped.Add(1)
		}
	}
	return delivered
}

// SubscriberCount returns the number of open connections for a user
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}

// Dropped returns how many events were discarded because a buffer was full
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
