package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/pkg/logger"
)

var (
	// ErrBusFull is returned by AsyncBus.Publish when the queue is at
	// capacity. The caller's change is already stored; only the event is
	// lost.
	ErrBusFull = errors.New("eventbus: queue full")
	// ErrBusClosed is returned by Publish after Close.
	ErrBusClosed = errors.New("eventbus: closed")
)

// AsyncConfig tunes an AsyncBus.
type AsyncConfig struct {
	Buffer         int           // queued events before Publish rejects
	HandlerTimeout time.Duration // bound on one event's dispatch
}

// AsyncBus is the in-process bus for single-binary deployments. Publish
// only enqueues; one goroutine drains the queue through the Dispatcher, so
// a slow webhook, S3 or SES call never holds up the command that raised
// the event.
type AsyncBus struct {
	dispatcher *Dispatcher
	cfg        AsyncConfig
	queue      chan domain.Event
	done       chan struct{}

	mu      sync.RWMutex
	started bool
	closed  bool

	handled  int64
	failed   int64
	rejected int64
}

func NewAsyncBus(d *Dispatcher, cfg AsyncConfig) *AsyncBus {
	if d == nil {
		d = NewDispatcher()
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 2 * time.Minute
	}
	return &AsyncBus{
		dispatcher: d,
		cfg:        cfg,
		queue:      make(chan domain.Event, cfg.Buffer),
		done:       make(chan struct{}),
	}
}

// Publish enqueues ev without waiting for subscribers.
func (b *AsyncBus) Publish(ctx context.Context, ev domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	select {
	case b.queue <- ev:
		return nil
	default:
		atomic.AddInt64(&b.rejected, 1)
		return fmt.Errorf("%w: %d events waiting", ErrBusFull, cap(b.queue))
	}
}

// Start launches the dispatch goroutine. Calling it twice is a no-op.
func (b *AsyncBus) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	b.started = true
	go b.run()
}

// Close stops accepting events and waits, until ctx ends, for the queued
// ones to be dispatched.
func (b *AsyncBus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.queue)
	if !b.started {
		b.started = true
		go b.run()
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		logger.Info("eventbus: drained", "handled", atomic.LoadInt64(&b.handled), "failed", atomic.LoadInt64(&b.failed))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("eventbus: %d events not dispatched: %w", len(b.queue), ctx.Err())
	}
}

func (b *AsyncBus) run() {
	defer close(b.done)
	for ev := range b.queue {
		b.dispatch(ev)
	}
}

func (b *AsyncBus) dispatch(ev domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.HandlerTimeout)
	defer cancel()
	if err := b.dispatcher.Dispatch(ctx, ev); err != nil {
		atomic.AddInt64(&b.failed, 1)
		logger.Error("eventbus: subscriber failed",
			"event_id", ev.EventID(), "event_type", ev.EventType(), "error", err)
		return
	}
	atomic.AddInt64(&b.handled, 1)
}

// Stats reports dispatched, failed and rejected event counts and the
// current queue depth.
func (b *AsyncBus) Stats() map[string]int64 {
	return map[string]int64{
		"handled":  atomic.LoadInt64(&b.handled),
		"failed":   atomic.LoadInt64(&b.failed),
		"rejected": atomic.LoadInt64(&b.rejected),
		"queued":   int64(len(b.queue)),
	}
}
