package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches a *StatusError with code 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound matches a *StatusError with code 404.
	ErrNotFound = errors.New("not found")

	// ErrInvalidBaseURL is returned by New for an unusable base URL.
	ErrInvalidBaseURL = errors.New("invalid base URL")

	// ErrNilTokenSource is returned by New when no TokenSource is given.
	ErrNilTokenSource = errors.New("token source is nil")
)

// StatusError is returned for every non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Message)
}

// Is reports whether target is the sentinel for this status code.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	}
	return false
}

// StatusCode returns the HTTP status of err, or 0 when err is not a
// *StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
