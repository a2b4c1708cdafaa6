// Package apperr defines the error kinds the service raises at the point of
// validation failure and how they are classified at the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error for boundary mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindValidation
)

// Error is a typed application error carrying a boundary-safe message.
type Error struct {
	kind    Kind
	message string
}

func (e *Error) Error() string { return e.message }

// Kind returns the classification of the error.
func (e *Error) Kind() Kind { return e.kind }

// NewNotFoundError reports that an entity does not exist (or is hidden from
// the caller).
func NewNotFoundError(entity string, id any) *Error {
	return &Error{kind: KindNotFound, message: fmt.Sprintf("%s with id %v not found", entity, id)}
}

// NewForbiddenError reports that the actor is not allowed to perform the
// operation.
func NewForbiddenError(message string) *Error {
	return &Error{kind: KindForbidden, message: message}
}

// NewConflictError reports that the operation conflicts with current state.
func NewConflictError(message string) *Error {
	return &Error{kind: KindConflict, message: message}
}

// NewValidationError reports malformed input.
func NewValidationError(message string) *Error {
	return &Error{kind: KindValidation, message: message}
}

// KindOf extracts the kind from an error chain, KindUnknown if it carries none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind()
	}
	return KindUnknown
}

// IsNotFound reports whether err is classified as not found.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err is classified as a conflict.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsForbidden reports whether err is classified as forbidden.
func IsForbidden(err error) bool { return KindOf(err) == KindForbidden }

// IsValidation reports whether err is classified as a validation failure.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
