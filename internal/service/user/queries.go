package user

import (
	"context"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/service/ports"
)

// GetUser looks a user up by id.
type GetUser struct {
	UserID string
}

// GetUserHandler handles GetUser.
type GetUserHandler struct {
	repo Repository
}

func NewGetUserHandler(repo Repository) *GetUserHandler {
	return &GetUserHandler{repo: repo}
}

// Handle returns (nil, nil) when the user does not exist.
func (h *GetUserHandler) Handle(ctx context.Context, q GetUser) (*domain.User, error) {
	u, err := h.repo.GetByID(ctx, q.UserID)
	if err != nil {
		return nil, ports.Persistence("get user "+q.UserID, err)
	}
	return u, nil
}

// GetUserByEmail looks a user up by address.
type GetUserByEmail struct {
	Email string
}

// GetUserByEmailHandler handles GetUserByEmail.
type GetUserByEmailHandler struct {
	repo   Repository
	policy domain.EmailPolicy
}

func NewGetUserByEmailHandler(repo Repository, policy domain.EmailPolicy) *GetUserByEmailHandler {
	return &GetUserByEmailHandler{repo: repo, policy: policy}
}

// Handle normalizes the address the same way registration does. An
// invalid address is a validation error, an unknown one is (nil, nil).
func (h *GetUserByEmailHandler) Handle(ctx context.Context, q GetUserByEmail) (*domain.User, error) {
	email, err := domain.NewEmailWithPolicy(q.Email, h.policy)
	if err != nil {
		return nil, err
	}
	u, err := h.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, ports.Persistence("get user by email", err)
	}
	return u, nil
}
