package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/service/ports"
)

// CreateUser registers a new account.
type CreateUser struct {
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// CreateUserHandler handles CreateUser.
type CreateUserHandler struct {
	repo   Repository
	pub    ports.EventPublisher
	clock  ports.Clock
	ids    ports.IDGenerator
	policy domain.EmailPolicy
}

// NewCreateUserHandler wires the handler.
func NewCreateUserHandler(repo Repository, pub ports.EventPublisher, clock ports.Clock, ids ports.IDGenerator, policy domain.EmailPolicy) *CreateUserHandler {
	return &CreateUserHandler{repo: repo, pub: pub, clock: clock, ids: ids, policy: policy}
}

// Handle validates the email, rejects duplicates and stores the user. On a
// publish failure the stored user is returned with an ErrPublish error.
func (h *CreateUserHandler) Handle(ctx context.Context, cmd CreateUser) (*domain.User, error) {
	email, err := domain.NewEmailWithPolicy(cmd.Email, h.policy)
	if err != nil {
		return nil, err
	}
	existing, err := h.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, ports.Persistence("lookup user by email", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: user with email %s", domain.ErrConflict, email)
	}

	now := h.clock.Now()
	u, err := domain.NewUser(h.ids.NewID(), email, cmd.Name, cmd.AvatarURL, now)
	if err != nil {
		return nil, err
	}
	if err := h.repo.Save(ctx, u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, ports.Persistence("save user "+u.ID, err)
	}

	return u, ports.PublishAfterCommit(ctx, h.pub, domain.NewUserCreatedEvent(u, now))
}

// UpdateProfile changes a user's display name and avatar. Only the user
// may change their own profile.
type UpdateProfile struct {
	UserID       string  `json:"user_id"`
	ActingUserID string  `json:"-"`
	Name         string  `json:"name"`
	AvatarURL    *string `json:"avatar_url,omitempty"`
}

// UpdateProfileHandler handles UpdateProfile.
type UpdateProfileHandler struct {
	repo   Repository
	clock  ports.Clock
	locker ports.Locker
}

// NewUpdateProfileHandler wires the handler.
func NewUpdateProfileHandler(repo Repository, clock ports.Clock, locker ports.Locker) *UpdateProfileHandler {
	return &UpdateProfileHandler{repo: repo, clock: clock, locker: locker}
}

// Handle applies the profile change.
func (h *UpdateProfileHandler) Handle(ctx context.Context, cmd UpdateProfile) (*domain.User, error) {
	unlock, err := h.locker.Lock(ctx, ports.LockKey("user", cmd.UserID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	u, err := h.repo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, ports.Persistence("get user "+cmd.UserID, err)
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, cmd.UserID)
	}
	if cmd.ActingUserID != u.ID {
		return nil, fmt.Errorf("%w: user %s cannot edit profile of %s", domain.ErrUnauthorized, cmd.ActingUserID, u.ID)
	}
	if err := u.UpdateProfile(cmd.Name, cmd.AvatarURL, h.clock.Now()); err != nil {
		return nil, err
	}
	if err := h.repo.Save(ctx, u); err != nil {
		return nil, ports.Persistence("save user "+u.ID, err)
	}
	return u, nil
}
