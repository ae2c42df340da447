// Package apperr defines the sentinel errors shared by all services and
// their mapping to HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound signals that a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRequest signals that the request failed validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrConflict signals that the request conflicts with current state,
	// for example a seat that is already booked.
	ErrConflict = errors.New("conflict")

	// ErrInternal signals an unexpected failure.
	ErrInternal = errors.New("internal error")
)

// NotFound wraps ErrNotFound with a formatted message.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// InvalidRequest wraps ErrInvalidRequest with a formatted message.
func InvalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Conflict wraps ErrConflict with a formatted message.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Internal wraps ErrInternal around an underlying error.
func Internal(err error) error {
	return fmt.Errorf("%w: %v", ErrInternal, err)
}

func IsNotFound(err error) bool       { return errors.Is(err, ErrNotFound) }
func IsInvalidRequest(err error) bool { return errors.Is(err, ErrInvalidRequest) }
func IsConflict(err error) bool       { return errors.Is(err, ErrConflict) }

// HTTPStatus maps an error to the status code its category carries.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the human-readable part of a sentinel-wrapped error,
// stripping the "<sentinel>: " prefix added by the constructors above.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, sentinel := range []error{ErrNotFound, ErrInvalidRequest, ErrConflict, ErrInternal} {
		prefix := sentinel.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}
