package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/service/ports"
)

// Deps bundles the collaborators shared by the content handlers.
type Deps struct {
	Repo      Repository
	Users     UserLookup
	Publisher ports.EventPublisher
	Clock     ports.Clock
	IDs       ports.IDGenerator
	Locker    ports.Locker
}

// CreateContent drafts a new piece of content for OwnerID.
type CreateContent struct {
	OwnerID string             `json:"user_id"`
	Title   string             `json:"title"`
	Type    domain.ContentType `json:"content_type"`
	Body    string             `json:"content_body"`
}

// CreateContentHandler handles CreateContent.
type CreateContentHandler struct {
	d Deps
}

func NewCreateContentHandler(d Deps) *CreateContentHandler {
	return &CreateContentHandler{d: d}
}

// Handle stores a new draft and announces it.
func (h *CreateContentHandler) Handle(ctx context.Context, cmd CreateContent) (*domain.Content, error) {
	if err := requireOwner(ctx, h.d.Users, cmd.OwnerID); err != nil {
		return nil, err
	}
	now := h.d.Clock.Now()
	c, err := domain.NewContent(h.d.IDs.NewID(), cmd.Title, cmd.Type, cmd.Body, cmd.OwnerID, now)
	if err != nil {
		return nil, err
	}
	if err := h.d.Repo.Save(ctx, c); err != nil {
		return nil, ports.Persistence("save content "+c.ID, err)
	}
	return c, ports.PublishAfterCommit(ctx, h.d.Publisher, domain.NewContentCreatedEvent(c, now))
}

// UpdateContent edits a draft or ready piece. Nil fields are left alone.
type UpdateContent struct {
	ContentID    string  `json:"content_id"`
	ActingUserID string  `json:"-"`
	Title        *string `json:"title,omitempty"`
	Body         *string `json:"content_body,omitempty"`
}

// UpdateContentHandler handles UpdateContent.
type UpdateContentHandler struct {
	d Deps
}

func NewUpdateContentHandler(d Deps) *UpdateContentHandler {
	return &UpdateContentHandler{d: d}
}

func (h *UpdateContentHandler) Handle(ctx context.Context, cmd UpdateContent) (*domain.Content, error) {
	return mutate(ctx, h.d, cmd.ContentID, cmd.ActingUserID, func(c *domain.Content) ([]domain.Event, error) {
		return nil, c.UpdateContent(cmd.Title, cmd.Body, h.d.Clock.Now())
	})
}

// MarkReady moves a draft to ready.
type MarkReady struct {
	ContentID    string
	ActingUserID string
}

// MarkReadyHandler handles MarkReady.
type MarkReadyHandler struct {
	d Deps
}

func NewMarkReadyHandler(d Deps) *MarkReadyHandler {
	return &MarkReadyHandler{d: d}
}

func (h *MarkReadyHandler) Handle(ctx context.Context, cmd MarkReady) (*domain.Content, error) {
	return mutate(ctx, h.d, cmd.ContentID, cmd.ActingUserID, func(c *domain.Content) ([]domain.Event, error) {
		return nil, c.MarkReady(h.d.Clock.Now())
	})
}

// PublishContent publishes ready content.
type PublishContent struct {
	ContentID    string
	ActingUserID string
}

// PublishContentHandler handles PublishContent.
type PublishContentHandler struct {
	d     Deps
	rules domain.ContentDomainService
}

func NewPublishContentHandler(d Deps) *PublishContentHandler {
	return &PublishContentHandler{d: d}
}

// Handle publishes the content and emits ContentPublishedEvent. If the
// event cannot be delivered the published content is still returned,
// together with an error wrapping domain.ErrPublish.
func (h *PublishContentHandler) Handle(ctx context.Context, cmd PublishContent) (*domain.Content, error) {
	return mutate(ctx, h.d, cmd.ContentID, cmd.ActingUserID, func(c *domain.Content) ([]domain.Event, error) {
		if err := h.rules.ValidateForPublication(c); err != nil {
			return nil, err
		}
		ev, err := c.Publish(h.d.Clock.Now())
		if err != nil {
			return nil, err
		}
		return []domain.Event{ev}, nil
	})
}

// ArchiveContent retires ready or published content.
type ArchiveContent struct {
	ContentID    string
	ActingUserID string
}

// ArchiveContentHandler handles ArchiveContent.
type ArchiveContentHandler struct {
	d Deps
}

func NewArchiveContentHandler(d Deps) *ArchiveContentHandler {
	return &ArchiveContentHandler{d: d}
}

func (h *ArchiveContentHandler) Handle(ctx context.Context, cmd ArchiveContent) (*domain.Content, error) {
	return mutate(ctx, h.d, cmd.ContentID, cmd.ActingUserID, func(c *domain.Content) ([]domain.Event, error) {
		return nil, c.Archive(h.d.Clock.Now())
	})
}

// GenerateContent asks the generator for a draft on Topic and stores it.
type GenerateContent struct {
	OwnerID  string             `json:"user_id"`
	Type     domain.ContentType `json:"content_type"`
	Topic    string             `json:"topic"`
	Tone     string             `json:"tone,omitempty"`
	Keywords []string           `json:"keywords,omitempty"`
}

// GenerateContentHandler handles GenerateContent.
type GenerateContentHandler struct {
	d         Deps
	generator Generator
}

func NewGenerateContentHandler(d Deps, g Generator) *GenerateContentHandler {
	return &GenerateContentHandler{d: d, generator: g}
}

// Handle generates copy and stores it as a draft owned by OwnerID.
func (h *GenerateContentHandler) Handle(ctx context.Context, cmd GenerateContent) (*domain.Content, error) {
	if h.generator == nil {
		return nil, ErrGenerationUnavailable
	}
	if !cmd.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown content type %q", domain.ErrValidation, cmd.Type)
	}
	if strings.TrimSpace(cmd.Topic) == "" {
		return nil, fmt.Errorf("%w: topic is required", domain.ErrValidation)
	}
	if err := requireOwner(ctx, h.d.Users, cmd.OwnerID); err != nil {
		return nil, err
	}
	draft, err := h.generator.Generate(ctx, GenerationRequest{
		Type:     cmd.Type,
		Topic:    cmd.Topic,
		Tone:     cmd.Tone,
		Keywords: cmd.Keywords,
	})
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", cmd.Type, err)
	}
	return NewCreateContentHandler(h.d).Handle(ctx, CreateContent{
		OwnerID: cmd.OwnerID,
		Title:   draft.Title,
		Type:    cmd.Type,
		Body:    draft.Body,
	})
}

func requireOwner(ctx context.Context, users UserLookup, ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("%w: content owner is required", domain.ErrValidation)
	}
	u, err := users.GetByID(ctx, ownerID)
	if err != nil {
		return ports.Persistence("get user "+ownerID, err)
	}
	if u == nil {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, ownerID)
	}
	return nil
}

// mutate runs the lock, load, authorize, apply, save, publish sequence
// shared by every content command.
func mutate(ctx context.Context, d Deps, id, actingUserID string, apply func(*domain.Content) ([]domain.Event, error)) (*domain.Content, error) {
	unlock, err := d.Locker.Lock(ctx, ports.LockKey("content", id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := d.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, ports.Persistence("get content "+id, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: content %s", domain.ErrNotFound, id)
	}
	if !c.IsOwnedBy(actingUserID) {
		return nil, fmt.Errorf("%w: user %s does not own content %s", domain.ErrUnauthorized, actingUserID, id)
	}

	events, err := apply(c)
	if err != nil {
		return nil, err
	}
	if err := d.Repo.Save(ctx, c); err != nil {
		return nil, ports.Persistence("save content "+id, err)
	}
	return c, ports.PublishAfterCommit(ctx, d.Publisher, events...)
}
