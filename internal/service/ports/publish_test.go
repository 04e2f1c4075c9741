package ports

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/pkg/logger"
)

type failingPublisher struct {
	failType string
	seen     []string
}

func (p *failingPublisher) Publish(_ context.Context, ev domain.Event) error {
	p.seen = append(p.seen, ev.EventType())
	if ev.EventType() == p.failType {
		return errors.New("broker unavailable")
	}
	return nil
}

func TestPublishAfterCommit(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	published := domain.NewContentPublishedEvent("c1", "u1", now)
	executed := domain.NewWorkflowExecutedEvent("w1", "u1", nil, now)

	pub := &failingPublisher{failType: domain.EventContentPublished}
	err := PublishAfterCommit(context.Background(), pub, published, executed)

	assert.ErrorIs(t, err, domain.ErrPublish)
	assert.Contains(t, err.Error(), "broker unavailable")
	assert.Equal(t, []string{domain.EventContentPublished, domain.EventWorkflowExecuted}, pub.seen)
	assert.Contains(t, buf.String(), published.EventID())

	assert.NoError(t, PublishAfterCommit(context.Background(), NopPublisher{}, published))
}

func TestPersistence(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence("save content c1", cause)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, err, cause)
}
