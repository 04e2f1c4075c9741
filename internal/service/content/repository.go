package content

import (
	"context"

	"github.com/ignite/contentflow/internal/domain"
)

// Repository is the persistence contract for content. GetByID returns
// (nil, nil) for an unknown id.
type Repository interface {
	Save(ctx context.Context, c *domain.Content) error
	GetByID(ctx context.Context, id string) (*domain.Content, error)
	// List returns matches ordered by created_at, then id, ascending.
	List(ctx context.Context, f ListFilter) ([]*domain.Content, error)
}

// ListFilter narrows List. Zero-valued fields do not filter. A Limit of
// zero or less means no limit.
type ListFilter struct {
	OwnerID string
	Type    domain.ContentType
	Status  domain.ContentStatus
	Limit   int
	Offset  int
}

// Match reports whether c passes the filter's predicates. Pagination is
// not considered.
func (f ListFilter) Match(c *domain.Content) bool {
	if f.OwnerID != "" && c.UserID != f.OwnerID {
		return false
	}
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	return true
}

// UserLookup resolves content owners.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Generator drafts copy for a topic.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GeneratedDraft, error)
}

// GenerationRequest describes the copy to draft.
type GenerationRequest struct {
	Type     domain.ContentType
	Topic    string
	Tone     string
	Keywords []string
}

// GeneratedDraft is the generator's output.
type GeneratedDraft struct {
	Title string
	Body  string
}
