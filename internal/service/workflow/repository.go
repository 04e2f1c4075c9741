package workflow

import (
	"context"

	"github.com/ignite/contentflow/internal/domain"
)

// Repository is the persistence contract for workflows. GetByID returns
// (nil, nil) for an unknown id.
type Repository interface {
	Save(ctx context.Context, w *domain.Workflow) error
	GetByID(ctx context.Context, id string) (*domain.Workflow, error)
	// List returns matches ordered by created_at, then id, ascending.
	List(ctx context.Context, f ListFilter) ([]*domain.Workflow, error)
}

// ListFilter narrows List. Zero-valued fields do not filter.
type ListFilter struct {
	OwnerID string
	Status  domain.WorkflowStatus
	Limit   int
	Offset  int
}

// Match reports whether w passes the filter's predicates.
func (f ListFilter) Match(w *domain.Workflow) bool {
	if f.OwnerID != "" && w.UserID != f.OwnerID {
		return false
	}
	if f.Status != "" && w.Status != f.Status {
		return false
	}
	return true
}

// UserLookup resolves workflow owners.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}
