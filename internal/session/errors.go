package session

import "errors"

var (
	// ErrUnknownTab is returned for a tab name outside Tabs.
	ErrUnknownTab = errors.New("unknown tab")

	// ErrNotAuthenticated is returned when a change requires a stored token.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrEmptyToken is returned when SetToken receives an empty token.
	ErrEmptyToken = errors.New("empty token")
)
