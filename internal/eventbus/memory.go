package eventbus

import (
	"context"
	"sync"

	"github.com/ignite/contentflow/internal/domain"
)

// MemoryBus records published events for tests. It keeps every event and
// has no subscribers; deployments use AsyncBus or RedisBus.
type MemoryBus struct {
	mu       sync.Mutex
	events   []domain.Event
	failWith error
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// FailWith makes every following Publish return err without recording.
// Pass nil to restore normal behaviour.
func (b *MemoryBus) FailWith(err error) {
	b.mu.Lock()
	b.failWith = err
	b.mu.Unlock()
}

func (b *MemoryBus) Publish(_ context.Context, ev domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWith != nil {
		return b.failWith
	}
	b.events = append(b.events, ev)
	return nil
}

// Events returns a copy of everything published so far.
func (b *MemoryBus) Events() []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Event(nil), b.events...)
}

// EventsOfType filters Events by type.
func (b *MemoryBus) EventsOfType(eventType string) []domain.Event {
	var out []domain.Event
	for _, ev := range b.Events() {
		if ev.EventType() == eventType {
			out = append(out, ev)
		}
	}
	return out
}
