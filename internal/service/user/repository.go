package user

import (
	"context"

	"github.com/ignite/contentflow/internal/domain"
)

// Repository is the persistence contract for users. Lookups return
// (nil, nil) when nothing matches. Save must reject an email already held
// by another user with domain.ErrConflict.
type Repository interface {
	Save(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email domain.Email) (*domain.User, error)
}
