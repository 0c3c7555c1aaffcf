package policy

import (
	"sync"
	"sync/atomic"
)

// Listener is notified after the policy has been replaced.
type Listener func(next, prev Policy)

// UnsubscribeFunc removes a listener.
type UnsubscribeFunc func()

// Store holds the current policy. Reads never block; Replace is the only
// mutation and is reserved for the settings layer.
type Store struct {
	current atomic.Pointer[Policy]

	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]Listener
}

// NewStore creates a store seeded with p.
func NewStore(p Policy) *Store {
	s := &Store{listeners: make(map[uint64]Listener)}
	cp := p.Clone()
	s.current.Store(&cp)
	return s
}

// Get returns a copy of the current policy.
func (s *Store) Get() Policy {
	return s.current.Load().Clone()
}

// Replace swaps in p and notifies listeners synchronously, in no particular order.
func (s *Store) Replace(p Policy) {
	cp := p.Clone()
	prev := s.current.Swap(&cp)

	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(cp.Clone(), prev.Clone())
	}
}

// Subscribe registers l for future replacements.
func (s *Store) Subscribe(l Listener) UnsubscribeFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
