package domain

import (
	"fmt"
	"strings"
	"time"
)

// Content is a piece of marketing copy moving through the publication
// lifecycle:
//
//	draft --MarkReady--> ready --Publish--> published --Archive--> archived
//	                     ready --Archive--> archived
type Content struct {
	ID          string        `json:"id" db:"id"`
	Title       string        `json:"title" db:"title"`
	Type        ContentType   `json:"content_type" db:"content_type"`
	Body        string        `json:"content_body" db:"content_body"`
	UserID      string        `json:"user_id" db:"user_id"`
	Status      ContentStatus `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
	PublishedAt *time.Time    `json:"published_at,omitempty" db:"published_at"`
}

// NewContent builds a draft owned by userID.
func NewContent(id, title string, typ ContentType, body, userID string, now time.Time) (*Content, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: content id is required", ErrValidation)
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: content title cannot be empty", ErrValidation)
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: content body cannot be empty", ErrValidation)
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown content type %q", ErrValidation, typ)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: content owner is required", ErrValidation)
	}
	now = now.UTC()
	return &Content{
		ID:        id,
		Title:     title,
		Type:      typ,
		Body:      body,
		UserID:    userID,
		Status:    ContentDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateContent replaces the title and/or body. Nil arguments keep the
// current value. Published and archived content is frozen.
func (c *Content) UpdateContent(title, body *string, now time.Time) error {
	if c.Status == ContentPublished || c.Status == ContentArchived {
		return fmt.Errorf("%w: %s content cannot be edited", ErrInvalidState, c.Status)
	}
	newTitle, newBody := c.Title, c.Body
	if title != nil {
		newTitle = *title
	}
	if body != nil {
		newBody = *body
	}
	if strings.TrimSpace(newTitle) == "" {
		return fmt.Errorf("%w: content title cannot be empty", ErrValidation)
	}
	if strings.TrimSpace(newBody) == "" {
		return fmt.Errorf("%w: content body cannot be empty", ErrValidation)
	}
	c.Title, c.Body = newTitle, newBody
	c.UpdatedAt = touch(c.CreatedAt, now)
	return nil
}

// MarkReady moves a draft to ready.
func (c *Content) MarkReady(now time.Time) error {
	if c.Status != ContentDraft {
		return fmt.Errorf("%w: only draft content can be marked as ready (status %s)", ErrInvalidState, c.Status)
	}
	c.Status = ContentReady
	c.UpdatedAt = touch(c.CreatedAt, now)
	return nil
}

// Publish moves ready content to published and returns the event the
// caller must dispatch. On error the entity is untouched.
func (c *Content) Publish(now time.Time) (ContentPublishedEvent, error) {
	if c.Status != ContentReady {
		return ContentPublishedEvent{}, fmt.Errorf("%w: only ready content can be published (status %s)", ErrInvalidState, c.Status)
	}
	at := touch(c.CreatedAt, now)
	c.Status = ContentPublished
	c.UpdatedAt = at
	c.PublishedAt = &at
	return NewContentPublishedEvent(c.ID, c.UserID, at), nil
}

// Archive retires ready or published content. published_at is cleared
// because it is only meaningful while the content is live.
func (c *Content) Archive(now time.Time) error {
	if c.Status != ContentReady && c.Status != ContentPublished {
		return fmt.Errorf("%w: only ready or published content can be archived (status %s)", ErrInvalidState, c.Status)
	}
	c.Status = ContentArchived
	c.PublishedAt = nil
	c.UpdatedAt = touch(c.CreatedAt, now)
	return nil
}

// IsOwnedBy reports whether userID owns c.
func (c *Content) IsOwnedBy(userID string) bool {
	return userID != "" && c.UserID == userID
}
