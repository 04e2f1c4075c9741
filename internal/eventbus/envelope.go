package eventbus

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/contentflow/internal/domain"
)

// ErrUnknownEventType is returned by Decode for event types this build
// does not know about.
var ErrUnknownEventType = errors.New("unknown event type")

// Envelope is the wire form of an event.
type Envelope struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

// Wrap encodes ev into an envelope.
func Wrap(ev domain.Event) (Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", ev.EventType(), err)
	}
	return Envelope{
		EventID:     ev.EventID(),
		EventType:   ev.EventType(),
		AggregateID: ev.AggregateID(),
		OccurredAt:  ev.OccurredAt().UTC(),
		Payload:     payload,
	}, nil
}

// Unwrap decodes the payload back into its concrete event type.
func (e Envelope) Unwrap() (domain.Event, error) {
	var (
		ev  domain.Event
		err error
	)
	switch e.EventType {
	case domain.EventUserCreated:
		var v domain.UserCreatedEvent
		err = json.Unmarshal(e.Payload, &v)
		ev = v
	case domain.EventContentCreated:
		var v domain.ContentCreatedEvent
		err = json.Unmarshal(e.Payload, &v)
		ev = v
	case domain.EventContentPublished:
		var v domain.ContentPublishedEvent
		err = json.Unmarshal(e.Payload, &v)
		ev = v
	case domain.EventWorkflowExecuted:
		var v domain.WorkflowExecutedEvent
		err = json.Unmarshal(e.Payload, &v)
		ev = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, e.EventType)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", e.EventType, e.EventID, err)
	}
	return ev, nil
}

// Marshal encodes ev as envelope JSON.
func Marshal(ev domain.Event) ([]byte, error) {
	env, err := Wrap(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// Unmarshal decodes envelope JSON into a concrete event.
func Unmarshal(data []byte) (domain.Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return env.Unwrap()
}
