package config

import "errors"

// Configuration validation errors returned by Validate.
var (
	// ErrInvalidAPIURL is returned when the API URL is not an absolute http(s) URL.
	ErrInvalidAPIURL = errors.New("invalid api url: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrNoSessionFile is returned when no session file location is set.
	ErrNoSessionFile = errors.New("no session file configured")

	// ErrInvalidListenAddress is returned when the listen address is not host:port.
	ErrInvalidListenAddress = errors.New("invalid listen address: expected host:port")

	// ErrNoDBDir is returned when no database directory is set.
	ErrNoDBDir = errors.New("no database directory configured")

	// ErrMissingJWTSecret is returned when no token signing secret is set.
	ErrMissingJWTSecret = errors.New("missing jwt secret: set ONIONBOARD_JWT_SECRET or server.jwt_secret")

	// ErrWeakJWTSecret is returned when the signing secret is too short.
	ErrWeakJWTSecret = errors.New("jwt secret too short: must be at least 16 bytes")

	// ErrInvalidTokenTTL is returned when the token lifetime is not positive.
	ErrInvalidTokenTTL = errors.New("invalid token ttl: must be positive")

	// ErrMissingAdminUsername is returned when the seeded account has no name.
	ErrMissingAdminUsername = errors.New("missing admin username")

	// ErrInvalidTorProxy is returned when the pinned Tor proxy is not host:port.
	ErrInvalidTorProxy = errors.New("invalid tor proxy address: expected host:port")

	// ErrInvalidScanRetries is returned when the retry count is not positive.
	ErrInvalidScanRetries = errors.New("invalid scan retries: must be positive")

	// ErrInvalidRetryDelay is returned when the retry delay is negative.
	ErrInvalidRetryDelay = errors.New("invalid retry delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidConcurrency is returned when the watchlist concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid watchlist concurrency: must be positive")
)
