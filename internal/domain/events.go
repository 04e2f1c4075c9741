package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event types, used as routing keys on the event bus.
const (
	EventUserCreated      = "user.created"
	EventContentCreated   = "content.created"
	EventContentPublished = "content.published"
	EventWorkflowExecuted = "workflow.executed"
)

// Event is an immutable record of something that happened to an entity.
type Event interface {
	EventID() string
	EventType() string
	OccurredAt() time.Time
	AggregateID() string
}

// EventMeta carries the identity shared by every event. It is embedded by
// value so that concrete events stay comparable and copy-safe.
type EventMeta struct {
	ID string    `json:"event_id"`
	At time.Time `json:"occurred_at"`
}

// NewEventMeta assigns a fresh event id stamped at now.
func NewEventMeta(now time.Time) EventMeta {
	return EventMeta{ID: uuid.NewString(), At: now.UTC()}
}

// EventID returns the globally unique event id.
func (m EventMeta) EventID() string { return m.ID }

// OccurredAt returns when the event was produced.
func (m EventMeta) OccurredAt() time.Time { return m.At }

// UserCreatedEvent is emitted once when a user registers.
type UserCreatedEvent struct {
	EventMeta
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// NewUserCreatedEvent builds the event for u.
func NewUserCreatedEvent(u *User, now time.Time) UserCreatedEvent {
	return UserCreatedEvent{EventMeta: NewEventMeta(now), UserID: u.ID, Email: u.Email.String()}
}

func (e UserCreatedEvent) EventType() string   { return EventUserCreated }
func (e UserCreatedEvent) AggregateID() string { return e.UserID }

// ContentCreatedEvent is emitted when a new draft is stored.
type ContentCreatedEvent struct {
	EventMeta
	ContentID   string      `json:"content_id"`
	UserID      string      `json:"user_id"`
	ContentType ContentType `json:"content_type"`
}

// NewContentCreatedEvent builds the event for c.
func NewContentCreatedEvent(c *Content, now time.Time) ContentCreatedEvent {
	return ContentCreatedEvent{
		EventMeta:   NewEventMeta(now),
		ContentID:   c.ID,
		UserID:      c.UserID,
		ContentType: c.Type,
	}
}

func (e ContentCreatedEvent) EventType() string   { return EventContentCreated }
func (e ContentCreatedEvent) AggregateID() string { return e.ContentID }

// ContentPublishedEvent is the trigger for downstream automation.
type ContentPublishedEvent struct {
	EventMeta
	ContentID   string    `json:"content_id"`
	UserID      string    `json:"user_id"`
	PublishedAt time.Time `json:"published_at"`
}

// NewContentPublishedEvent builds the event; it occurs at publishedAt.
func NewContentPublishedEvent(contentID, userID string, publishedAt time.Time) ContentPublishedEvent {
	return ContentPublishedEvent{
		EventMeta:   NewEventMeta(publishedAt),
		ContentID:   contentID,
		UserID:      userID,
		PublishedAt: publishedAt.UTC(),
	}
}

func (e ContentPublishedEvent) EventType() string   { return EventContentPublished }
func (e ContentPublishedEvent) AggregateID() string { return e.ContentID }

// WorkflowExecutedEvent records a single workflow execution request.
type WorkflowExecutedEvent struct {
	EventMeta
	WorkflowID    string         `json:"workflow_id"`
	UserID        string         `json:"user_id"`
	ExecutionData map[string]any `json:"execution_data,omitempty"`
	ExecutedAt    time.Time      `json:"executed_at"`
}

// NewWorkflowExecutedEvent builds the event. data is copied.
func NewWorkflowExecutedEvent(workflowID, userID string, data map[string]any, executedAt time.Time) WorkflowExecutedEvent {
	return WorkflowExecutedEvent{
		EventMeta:     NewEventMeta(executedAt),
		WorkflowID:    workflowID,
		UserID:        userID,
		ExecutionData: cloneMap(data),
		ExecutedAt:    executedAt.UTC(),
	}
}

func (e WorkflowExecutedEvent) EventType() string   { return EventWorkflowExecuted }
func (e WorkflowExecutedEvent) AggregateID() string { return e.WorkflowID }

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
