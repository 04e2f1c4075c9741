package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ignite/contentflow/internal/domain"
)

// Users is an in-memory user.Repository.
type Users struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[domain.Email]string
}

func NewUsers() *Users {
	return &Users{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[domain.Email]string),
	}
}

// Save inserts or replaces u. An email held by another user is a conflict.
func (r *Users) Save(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.byEmail[u.Email]; ok && owner != u.ID {
		return fmt.Errorf("%w: email %s", domain.ErrConflict, u.Email)
	}
	if prev, ok := r.byID[u.ID]; ok && prev.Email != u.Email {
		delete(r.byEmail, prev.Email)
	}
	r.byID[u.ID] = copyUser(u)
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *Users) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (r *Users) GetByEmail(_ context.Context, email domain.Email) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	return copyUser(r.byID[id]), nil
}

func copyUser(u *domain.User) *domain.User {
	cp := *u
	if u.AvatarURL != nil {
		avatar := *u.AvatarURL
		cp.AvatarURL = &avatar
	}
	return &cp
}
