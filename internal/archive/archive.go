// Package archive writes every domain event to S3 as a JSON envelope, one
// object per event, partitioned by type and day.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/eventbus"
	"github.com/ignite/contentflow/internal/pkg/logger"
)

// S3API is the subset of the S3 client used by the sink.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Sink archives events to a bucket.
type Sink struct {
	client S3API
	bucket string
	prefix string
}

func NewSink(client S3API, bucket, prefix string) *Sink {
	if prefix == "" {
		prefix = "events"
	}
	return &Sink{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key for ev:
// <prefix>/<event type>/<yyyy>/<mm>/<dd>/<event id>.json.
func (s *Sink) Key(ev domain.Event) string {
	at := ev.OccurredAt().UTC()
	return path.Join(s.prefix, ev.EventType(), at.Format("2006/01/02"), ev.EventID()+".json")
}

// Handle stores ev. Writing the same event twice overwrites one object.
func (s *Sink) Handle(ctx context.Context, ev domain.Event) error {
	body, err := eventbus.Marshal(ev)
	if err != nil {
		return err
	}
	key := s.Key(ev)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"event-type":   ev.EventType(),
			"aggregate-id": ev.AggregateID(),
		},
	})
	if err != nil {
		return fmt.Errorf("archive %s to s3://%s/%s: %w", ev.EventID(), s.bucket, key, err)
	}
	logger.Debug("event archived", "event_id", ev.EventID(), "key", key)
	return nil
}
