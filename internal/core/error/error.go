package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage is used when a key is absent.
	RedisNotFoundMessage = "redis key not found"
	// HistoryErrorMessage describes chat log persistence failures.
	HistoryErrorMessage = "chat history operation failed"
	// CompletionErrorMessage describes completion backend failures.
	CompletionErrorMessage = "completion request failed"
)

// ErrNoModelAvailable signals that failover found no alternative model in the
// catalog. Callers must stop retrying and surface the failure.
var ErrNoModelAvailable = errors.New("no alternative model available")

// Error wraps an underlying error with an HTTP-style status and a message
// that is safe to show to the end user.
type Error struct {
	Err     error
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error with the provided information.
func New(err error, status int, message string) *Error {
	return &Error{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Is reports whether the target matches the underlying error or the Error itself.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to Error or the wrapped error in a chain.
func (e *Error) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**Error); ok {
		*t = e
		return true
	}
	return false
}

// WrapHistory wraps a chat log persistence error.
func WrapHistory(err error) *Error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusInternalServerError, HistoryErrorMessage)
}
