package ports

import (
	"context"
	"fmt"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/pkg/logger"
)

// PublishAfterCommit dispatches events produced by an already persisted
// mutation. A failure is logged and returned wrapped in domain.ErrPublish;
// remaining events are still attempted.
func PublishAfterCommit(ctx context.Context, pub EventPublisher, events ...domain.Event) error {
	var firstErr error
	for _, ev := range events {
		if err := pub.Publish(ctx, ev); err != nil {
			logger.Error("event publish failed",
				"event_id", ev.EventID(),
				"event_type", ev.EventType(),
				"aggregate_id", ev.AggregateID(),
				"error", err,
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: %s %s: %w", domain.ErrPublish, ev.EventType(), ev.EventID(), err)
			}
		}
	}
	return firstErr
}

// Persistence wraps a repository failure for op.
func Persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}
