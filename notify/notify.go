// Package notify carries user-facing toast notifications from the generator
// to whatever presents them.
package notify

import (
	"log/slog"
	"sync"
)

// Variant selects how a notification is styled.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a transient message with a short title and description.
type Notification struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

// Notifier receives notifications. Implementations must not block for long.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to the Notifier interface.
type Func func(n Notification)

func (f Func) Notify(n Notification) { f(n) }

// Queue buffers notifications until a page render drains them. When full,
// the oldest entry is dropped.
type Queue struct {
	mu    sync.Mutex
	items []Notification
	max   int
}

// defaultQueueSize bounds how many toasts a single session can pile up.
const defaultQueueSize = 8

// NewQueue returns a queue holding at most max notifications. max <= 0 uses
// the default size.
func NewQueue(max int) *Queue {
	if max <= 0 {
		max = defaultQueueSize
	}
	return &Queue{max: max}
}

func (q *Queue) Notify(n Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.max {
		q.items = q.items[1:]
	}
	q.items = append(q.items, n)
}

// Drain returns pending notifications in arrival order and empties the queue.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	q.items = nil
	return out
}

// Len reports the number of pending notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Logger writes notifications to log: destructive ones at warn level.
// The CLI uses it in place of toasts.
func Logger(log *slog.Logger) Notifier {
	return Func(func(n Notification) {
		if n.Variant == VariantDestructive {
			log.Warn(n.Title, "description", n.Description)
			return
		}
		log.Info(n.Title, "description", n.Description)
	})
}

// Multi fans a notification out to every non-nil notifier.
func Multi(ns ...Notifier) Notifier {
	return Func(func(n Notification) {
		for _, target := range ns {
			if target != nil {
				target.Notify(n)
			}
		}
	})
}
