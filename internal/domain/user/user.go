// Package user holds the user entity and its persistence contract. The
// reservation engine consults it only to check that actors exist.
package user

import (
	"strings"

	"github.com/gearshare/service-booking/pkg/apperr"
)

// User is a registered participant of the sharing platform.
type User struct {
	id    int64
	name  string
	email string
}

// NewUser creates a new user with validated fields.
func NewUser(name, email string) (*User, error) {
	if name == "" {
		return nil, apperr.NewValidationError("user name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.NewValidationError("valid email is required")
	}
	return &User{name: name, email: email}, nil
}

// Reconstruct rebuilds a User from persistence data (no validation).
func Reconstruct(id int64, name, email string) *User {
	return &User{id: id, name: name, email: email}
}

// ID returns the user's identifier, zero before the store assigns one.
func (u *User) ID() int64 { return u.id }

// Name returns the user's display name.
func (u *User) Name() string { return u.name }

// Email returns the user's email address.
func (u *User) Email() string { return u.email }

// ApplyPatch updates the fields present in the patch.
func (u *User) ApplyPatch(name, email *string) error {
	if name != nil && *name != "" {
		u.name = *name
	}
	if email != nil {
		if *email == "" || !strings.Contains(*email, "@") {
			return apperr.NewValidationError("valid email is required")
		}
		u.email = *email
	}
	return nil
}
