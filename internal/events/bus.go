// Package events provides the pub/sub bus that carries host notifications
// (content changed on disk, layout changed, menu opening) and refresh
// outcomes between panefresh components.
package events

import (
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"
)

// BusEvent is the interface that all bus events implement.
type BusEvent interface {
	EventType() string
	EventTimestamp() time.Time
}

// EventHandler is a callback for event subscriptions.
type EventHandler func(BusEvent)

// UnsubscribeFunc is returned from Subscribe and removes the handler.
type UnsubscribeFunc func()

// Wildcard subscribes to every event type.
const Wildcard = "*"

// EventBus is a pub/sub hub with a bounded history of recent events.
type EventBus struct {
	mu     sync.RWMutex
	seq    uint64
	topics map[string]map[uint64]EventHandler

	// recent is a fixed-size ring; head is the next write slot.
	recent []BusEvent
	head   int
	filled bool
}

// NewEventBus creates a bus keeping the last historySize events.
func NewEventBus(historySize int) *EventBus {
	if historySize < 1 {
		historySize = 100
	}
	return &EventBus{
		topics: make(map[string]map[uint64]EventHandler),
		recent: make([]BusEvent, historySize),
	}
}

// Subscribe registers a handler for one event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) UnsubscribeFunc {
	b.mu.Lock()
	b.seq++
	id := b.seq
	topic, ok := b.topics[eventType]
	if !ok {
		topic = make(map[uint64]EventHandler)
		b.topics[eventType] = topic
	}
	topic[id] = handler
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.topics[eventType], id)
			if len(b.topics[eventType]) == 0 {
				delete(b.topics, eventType)
			}
		})
	}
}

// SubscribeAll registers a handler for every event.
func (b *EventBus) SubscribeAll(handler EventHandler) UnsubscribeFunc {
	return b.Subscribe(Wildcard, handler)
}

// Publish delivers the event to each subscriber on its own goroutine and
// returns immediately.
func (b *EventBus) Publish(event BusEvent) {
	for _, h := range b.record(event) {
		go h(event)
	}
}

// PublishSync delivers the event and waits for every handler to return.
func (b *EventBus) PublishSync(event BusEvent) {
	handlers := b.record(event)
	var wg sync.WaitGroup
	wg.Add(len(handlers))
	for _, h := range handlers {
		go func(h EventHandler) {
			defer wg.Done()
			h(event)
		}(h)
	}
	wg.Wait()
}

// record appends event to the history and snapshots the handlers that
// should see it, in subscription order.
func (b *EventBus) record(event BusEvent) []EventHandler {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.recent[b.head] = event
	b.head = (b.head + 1) % len(b.recent)
	if b.head == 0 {
		b.filled = true
	}

	return append(snapshot(b.topics[event.EventType()]), snapshot(b.topics[Wildcard])...)
}

func snapshot(topic map[uint64]EventHandler) []EventHandler {
	if len(topic) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(topic))
	for id := range topic {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]EventHandler, len(ids))
	for i, id := range ids {
		out[i] = topic[id]
	}
	return out
}

// History returns up to limit recent events, newest first. A limit of zero
// or less returns everything retained.
func (b *EventBus) History(limit int) []BusEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := b.head
	if b.filled {
		n = len(b.recent)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]BusEvent, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (b.head - i + len(b.recent)) % len(b.recent)
		out = append(out, b.recent[idx])
	}
	return out
}

// Stream writes every event as a JSON line to w until unsubscribed.
func (b *EventBus) Stream(w io.Writer) UnsubscribeFunc {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return b.SubscribeAll(func(e BusEvent) {
		mu.Lock()
		defer mu.Unlock()
		_ = enc.Encode(e)
	})
}

// SubscriberCount returns the number of subscribers for an event type.
func (b *EventBus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[eventType])
}
