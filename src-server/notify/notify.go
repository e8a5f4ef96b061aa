// Package notify is the transient, user-facing message channel. Actions
// push a success or error line; the dashboard drains the queue and shows
// them as toasts.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

type Notification struct {
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type Notifier interface {
	Notify(level Level, message string)
}

// Queue keeps the most recent notifications up to a fixed capacity; older
// ones are dropped when it overflows.
type Queue struct {
	mu       sync.Mutex
	items    []Notification
	capacity int
	now      func() time.Time
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 50
	}
	return &Queue{capacity: capacity, now: time.Now}
}

func (q *Queue) Notify(level Level, message string) {
	switch level {
	case LevelError:
		slog.Warn("notification", "level", level, "message", message)
	default:
		slog.Debug("notification", "level", level, "message", message)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, Notification{
		Level:     level,
		Message:   message,
		CreatedAt: q.now(),
	})
	if over := len(q.items) - q.capacity; over > 0 {
		q.items = append([]Notification(nil), q.items[over:]...)
	}
}

// Drain returns every pending notification, oldest first, and empties the
// queue.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	if items == nil {
		return []Notification{}
	}
	return items
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Hub hands out one queue per session.
type Hub struct {
	mu       sync.Mutex
	queues   map[string]*Queue
	capacity int
}

func NewHub(capacity int) *Hub {
	return &Hub{queues: make(map[string]*Queue), capacity: capacity}
}

func (h *Hub) Queue(sessionID string) *Queue {
	h.mu.Lock()
	defer h.mu.Unlock()
	q, ok := h.queues[sessionID]
	if !ok {
		q = NewQueue(h.capacity)
		h.queues[sessionID] = q
	}
	return q
}

func (h *Hub) Forget(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.queues, sessionID)
}
