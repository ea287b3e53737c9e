// Package apperror defines the domain error taxonomy shared by every
// service. Handlers translate these sentinels to HTTP status codes;
// services never import net/http.
package apperror

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized indicates the caller has no valid session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates an authenticated caller attempted a disallowed mutation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound covers both absent rows and rows owned by another user.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrDependency indicates the database or an external provider failed.
	ErrDependency = errors.New("dependency failed")
)

// AppError pairs a sentinel with a human-readable message and an
// optional offending field.
type AppError struct {
	Err     error
	Message string
	Field   string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Unauthorized reports a missing or invalid session.
func Unauthorized() *AppError {
	return &AppError{Err: ErrUnauthorized, Message: "unauthorized"}
}

// Forbidden reports an authenticated but disallowed operation.
func Forbidden(message string) *AppError {
	return &AppError{Err: ErrForbidden, Message: message}
}

// NotFound reports an absent or foreign entity. The message never
// distinguishes the two cases.
func NotFound(resource string) *AppError {
	return &AppError{Err: ErrNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

// ValidationFailed reports a field-level input problem.
func ValidationFailed(field, message string) *AppError {
	return &AppError{Err: ErrValidation, Message: message, Field: field}
}

// Dependency wraps a database or provider failure. The message stays
// generic so internals never reach the caller; the cause remains on the
// error chain for logging.
func Dependency(operation string, cause error) *AppError {
	err := error(ErrDependency)
	if cause != nil {
		err = fmt.Errorf("%w: %v", ErrDependency, cause)
	}
	return &AppError{Err: err, Message: fmt.Sprintf("%s failed", operation)}
}
