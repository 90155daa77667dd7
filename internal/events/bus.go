// Package events fans collection change notifications out to SSE subscribers.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/micro-nova/taskd/internal/models"
	"github.com/micro-nova/taskd/internal/store"
)

const subBufferSize = 8

// Bus is a non-blocking publish-subscribe event bus.
// Slow subscribers have events dropped rather than blocking publishers.
type Bus struct {
	mu   sync.Mutex
	subs map[string]chan models.ChangeEvent
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string]chan models.ChangeEvent),
	}
}

// Subscribe registers a subscriber under id. Call Unsubscribe when done.
func (b *Bus) Subscribe(id string) <-chan models.ChangeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.subs[id]; ok {
		close(old)
	}
	ch := make(chan models.ChangeEvent, subBufferSize)
	b.subs[id] = ch
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish sends ev to all subscribers without blocking.
func (b *Bus) Publish(ev models.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// slow subscriber
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Counter reports the current size of a collection.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// WatchCollection publishes a ChangeEvent each time the file at path changes,
// whether the write came from this process or another one. It blocks until
// ctx is cancelled.
func (b *Bus) WatchCollection(ctx context.Context, name, path string, c Counter, debounce time.Duration) error {
	return store.Watch(ctx, path, debounce, func() {
		n, err := c.Count(ctx)
		if err != nil {
			slog.Warn("events: failed to count collection", "collection", name, "err", err)
			return
		}
		b.Publish(models.ChangeEvent{Collection: name, Count: n, At: models.Now()})
	})
}
