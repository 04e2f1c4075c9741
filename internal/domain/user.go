package domain

import (
	"fmt"
	"strings"
	"time"
)

// User is a registered account that owns content and workflows.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     Email     `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	AvatarURL *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewUser builds a user stamped at now.
func NewUser(id string, email Email, name string, avatarURL *string, now time.Time) (*User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if email.IsZero() {
		return nil, fmt.Errorf("%w: user email is required", ErrValidation)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: user name is required", ErrValidation)
	}
	now = now.UTC()
	return &User{
		ID:        id,
		Email:     email,
		Name:      name,
		AvatarURL: avatarURL,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateProfile changes the display name and, when avatarURL is non-nil,
// the avatar.
func (u *User) UpdateProfile(name string, avatarURL *string, now time.Time) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: user name is required", ErrValidation)
	}
	u.Name = name
	if avatarURL != nil {
		avatar := *avatarURL
		u.AvatarURL = &avatar
	}
	u.UpdatedAt = touch(u.CreatedAt, now)
	return nil
}

// touch returns now in UTC, never earlier than created.
func touch(created, now time.Time) time.Time {
	now = now.UTC()
	if now.Before(created) {
		return created
	}
	return now
}
