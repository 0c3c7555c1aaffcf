package refresh

import (
	"log/slog"
	"sync"
)

// Lifecycle collects teardown callbacks and runs them, newest first, when
// the engine unloads.
type Lifecycle struct {
	mu      sync.Mutex
	entries []teardown
	nextID  int
	closed  bool
}

type teardown struct {
	id   int
	name string
	fn   func()
}

// Register adds fn. The returned func drops fn without running it.
// Registering on a closed lifecycle runs fn immediately.
func (l *Lifecycle) Register(name string, fn func()) (unregister func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		fn()
		return func() {}
	}
	l.nextID++
	id := l.nextID
	l.entries = append(l.entries, teardown{id: id, name: name, fn: fn})
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, e := range l.entries {
			if e.id == id {
				l.entries = append(l.entries[:i], l.entries[i+1:]...)
				return
			}
		}
	}
}

// Len returns the number of pending callbacks.
func (l *Lifecycle) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Close runs every callback once. Subsequent calls do nothing.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	entries := l.entries
	l.entries = nil
	l.mu.Unlock()

	for i := len(entries) - 1; i >= 0; i-- {
		slog.Debug("teardown", "name", entries[i].name)
		entries[i].fn()
	}
}
