package apperrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error for the caller-visible outcome.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindConflict         Kind = "conflict"
	KindStorageConflict  Kind = "storage_conflict"
	KindPermissionDenied Kind = "permission_denied"
	KindNotFound         Kind = "not_found"
	KindInternal         Kind = "internal"
)

// Error is the error type returned across the booking workflow boundary.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry with a different slot.
func (e *Error) Retryable() bool {
	return e.Kind == KindStorageConflict
}

func NewValidationError(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func NewConflictError(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

func NewStorageConflictError(message string, err error) error {
	return &Error{Kind: KindStorageConflict, Message: message, Err: err}
}

func NewPermissionDeniedError(message string) error {
	return &Error{Kind: KindPermissionDenied, Message: message}
}

func NewNotFoundError(entity string) error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

// Wrap annotates err with a message while keeping its kind. Errors without a
// kind become internal.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Kind: KindInternal, Message: message, Err: errors.WithStack(err)}
}

// KindOf returns the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the caller-facing message of err.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Message
	}
	return "internal server error"
}
