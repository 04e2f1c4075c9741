package eventbus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/contentflow/internal/pkg/logger"
)

// ConsumerConfig tunes a stream Consumer.
type ConsumerConfig struct {
	Stream  string
	Group   string
	Name    string
	Batch   int64
	Block   time.Duration
	MinIdle time.Duration // pending entries idle this long are reclaimed
	Backoff time.Duration // pause after a Redis error
}

// Consumer reads a stream through a consumer group and dispatches each
// entry. Entries are acknowledged when every handler succeeded or when the
// entry can never be decoded; otherwise they stay pending and are
// reclaimed after MinIdle.
type Consumer struct {
	client     *redis.Client
	cfg        ConsumerConfig
	dispatcher *Dispatcher

	handled int64
	failed  int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewConsumer(client *redis.Client, d *Dispatcher, cfg ConsumerConfig) *Consumer {
	if cfg.Batch <= 0 {
		cfg.Batch = 16
	}
	if cfg.Block <= 0 {
		cfg.Block = 2 * time.Second
	}
	if cfg.MinIdle <= 0 {
		cfg.MinIdle = time.Minute
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &Consumer{client: client, cfg: cfg, dispatcher: d}
}

// EnsureGroup creates the consumer group, and the stream, if missing.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", c.cfg.Group, c.cfg.Stream, err)
	}
	return nil
}

// Start launches the read loop.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("consumer already running")
	}
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.running = true

	logger.Info("eventbus: consumer starting", "stream", c.cfg.Stream, "group", c.cfg.Group, "consumer", c.cfg.Name)
	c.wg.Add(1)
	go c.loop(ctx)
	return nil
}

// Stop cancels the loop and waits for the in-flight batch.
func (c *Consumer) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
	logger.Info("eventbus: consumer stopped",
		"handled", atomic.LoadInt64(&c.handled), "failed", atomic.LoadInt64(&c.failed))
}

func (c *Consumer) loop(ctx context.Context) {
	defer c.wg.Done()
	for ctx.Err() == nil {
		if _, err := c.Reclaim(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("eventbus: reclaim failed", "error", err)
		}
		if _, err := c.Poll(ctx); err != nil && ctx.Err() == nil {
			logger.Error("eventbus: read failed", "stream", c.cfg.Stream, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(c.cfg.Backoff):
			}
		}
	}
}

// Poll reads one batch of new entries and processes it. It returns the
// number of entries read.
func (c *Consumer) Poll(ctx context.Context) (int, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Name,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.Batch,
		Block:    c.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("xreadgroup %s: %w", c.cfg.Stream, err)
	}
	n := 0
	for _, s := range streams {
		for _, msg := range s.Messages {
			c.process(ctx, msg)
			n++
		}
	}
	return n, nil
}

// Reclaim takes over entries another consumer left pending for longer
// than MinIdle and processes them.
func (c *Consumer) Reclaim(ctx context.Context) (int, error) {
	msgs, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Name,
		MinIdle:  c.cfg.MinIdle,
		Start:    "0-0",
		Count:    c.cfg.Batch,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("xautoclaim %s: %w", c.cfg.Stream, err)
	}
	for _, msg := range msgs {
		c.process(ctx, msg)
	}
	return len(msgs), nil
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	raw, _ := msg.Values[envelopeField].(string)
	ev, err := Unmarshal([]byte(raw))
	if err != nil {
		// Undecodable entries would fail forever; drop them.
		logger.Error("eventbus: dropping undecodable entry", "stream_id", msg.ID, "error", err)
		c.ack(ctx, msg.ID)
		return
	}

	if err := c.dispatcher.Dispatch(ctx, ev); err != nil {
		atomic.AddInt64(&c.failed, 1)
		logger.Error("eventbus: handler failed, entry left pending",
			"stream_id", msg.ID, "event_id", ev.EventID(), "event_type", ev.EventType(), "error", err)
		return
	}
	atomic.AddInt64(&c.handled, 1)
	c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil {
		logger.Error("eventbus: ack failed", "stream_id", id, "error", err)
	}
}

// Stats reports processed and failed entry counts.
func (c *Consumer) Stats() map[string]int64 {
	return map[string]int64{
		"handled": atomic.LoadInt64(&c.handled),
		"failed":  atomic.LoadInt64(&c.failed),
	}
}
