package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// Email is a syntactically valid email address. The zero value is not a
// valid address; construct one with NewEmail.
type Email struct {
	value string
}

// EmailPolicy controls normalization applied before validation.
type EmailPolicy struct {
	// FoldDomainCase lower-cases the part after the "@". The local part is
	// never folded.
	FoldDomainCase bool
}

// NewEmail validates raw and returns it unchanged as an Email.
func NewEmail(raw string) (Email, error) {
	return NewEmailWithPolicy(raw, EmailPolicy{})
}

// NewEmailWithPolicy validates raw after applying the policy's normalization.
func NewEmailWithPolicy(raw string, p EmailPolicy) (Email, error) {
	if err := validateEmail(raw); err != nil {
		return Email{}, err
	}
	if p.FoldDomainCase {
		at := strings.IndexByte(raw, '@')
		raw = raw[:at+1] + strings.ToLower(raw[at+1:])
	}
	return Email{value: raw}, nil
}

func validateEmail(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: invalid email format: empty", ErrValidation)
	}
	if strings.IndexFunc(raw, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: invalid email format: contains whitespace", ErrValidation)
	}
	if strings.Count(raw, "@") != 1 {
		return fmt.Errorf("%w: invalid email format: %q", ErrValidation, raw)
	}
	if strings.Contains(raw, "..") {
		return fmt.Errorf("%w: invalid email format: consecutive dots", ErrValidation)
	}

	local, host, _ := strings.Cut(raw, "@")
	dot := strings.LastIndexByte(host, '.')
	if local == "" || dot < 1 || dot == len(host)-1 {
		return fmt.Errorf("%w: invalid email format: %q", ErrValidation, raw)
	}
	return nil
}

// String returns the address.
func (e Email) String() string { return e.value }

// Value returns the address.
func (e Email) Value() string { return e.value }

// Domain returns the part after the "@".
func (e Email) Domain() string {
	_, host, _ := strings.Cut(e.value, "@")
	return host
}

// IsZero reports whether e was never constructed.
func (e Email) IsZero() bool { return e.value == "" }

// MarshalText encodes the address as a plain string.
func (e Email) MarshalText() ([]byte, error) { return []byte(e.value), nil }

// UnmarshalText validates and decodes an address.
func (e *Email) UnmarshalText(b []byte) error {
	parsed, err := NewEmail(string(b))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
