package eventbus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/contentflow/internal/domain"
)

// envelopeField is the stream entry field holding the envelope JSON.
const envelopeField = "envelope"

// RedisBus publishes events to a Redis stream with XADD.
type RedisBus struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisBus appends to stream, trimming it to roughly maxLen entries
// when maxLen > 0.
func NewRedisBus(client *redis.Client, stream string, maxLen int64) *RedisBus {
	return &RedisBus{client: client, stream: stream, maxLen: maxLen}
}

func (b *RedisBus) Publish(ctx context.Context, ev domain.Event) error {
	data, err := Marshal(ev)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]interface{}{
			envelopeField: string(data),
			"event_type":  ev.EventType(),
		},
	}
	if b.maxLen > 0 {
		args.MaxLen = b.maxLen
		args.Approx = true
	}
	if err := b.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s %s: %w", b.stream, ev.EventID(), err)
	}
	return nil
}
