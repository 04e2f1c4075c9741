package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ignite/contentflow/internal/domain"
)

// Handler consumes one event.
type Handler func(ctx context.Context, ev domain.Event) error

// Dispatcher routes events to the handlers subscribed to their type.
type Dispatcher struct {
	mu       sync.RWMutex
	byType   map[string][]namedHandler
	wildcard []namedHandler
}

type namedHandler struct {
	name string
	fn   Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{byType: make(map[string][]namedHandler)}
}

// Subscribe registers fn for eventType. name appears in error messages.
func (d *Dispatcher) Subscribe(eventType, name string, fn Handler) {
	d.mu.Lock()
	d.byType[eventType] = append(d.byType[eventType], namedHandler{name: name, fn: fn})
	d.mu.Unlock()
}

// SubscribeAll registers fn for every event type.
func (d *Dispatcher) SubscribeAll(name string, fn Handler) {
	d.mu.Lock()
	d.wildcard = append(d.wildcard, namedHandler{name: name, fn: fn})
	d.mu.Unlock()
}

// Dispatch runs every matching handler, in registration order, and joins
// their failures. A failing handler does not stop the others.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.Event) error {
	d.mu.RLock()
	handlers := make([]namedHandler, 0, len(d.byType[ev.EventType()])+len(d.wildcard))
	handlers = append(handlers, d.byType[ev.EventType()]...)
	handlers = append(handlers, d.wildcard...)
	d.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h.fn(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	return errors.Join(errs...)
}
