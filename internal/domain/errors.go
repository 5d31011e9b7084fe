package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a referenced question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrCategoryNotFound indicates a referenced category ID is invalid.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrUserNotFound is returned when an account does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrResultNotFound is returned when a history entry does not exist.
	ErrResultNotFound = errors.New("result not found")

	// ErrInternalConsistency marks stored data that breaks an invariant (no correct option, empty quiz).
	ErrInternalConsistency = errors.New("internal consistency error")
	// ErrVersionConflict is returned by a compare-and-swap commit that lost a race.
	ErrVersionConflict = errors.New("version conflict")
	// ErrPersistence wraps store write failures.
	ErrPersistence = errors.New("persistence failure")

	// ErrDuplicate is returned when a unique field is already taken.
	ErrDuplicate = errors.New("already exists")
	// ErrInvalidCredentials is returned by login and password change.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized means no valid token was presented.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the caller is authenticated but not allowed.
	ErrForbidden = errors.New("forbidden")
	// ErrStorageDisabled is returned when object storage is not configured.
	ErrStorageDisabled = errors.New("object storage not configured")
)

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrCategoryNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrResultNotFound)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
