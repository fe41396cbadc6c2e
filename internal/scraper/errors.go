package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/nao1215/onionboard/internal/tor"
)

var (
	// ErrInvalidOnion is returned when the address is malformed or uses the
	// retired v2 format.
	ErrInvalidOnion = errors.New("onion address is invalid or uses an unsupported format")

	// ErrTimeout is returned when the site did not answer in time.
	ErrTimeout = errors.New("connection timed out; the site is slow or offline")

	// ErrUnreachable is returned when the target host cannot be reached.
	ErrUnreachable = errors.New("target host is unreachable")

	// ErrConnectionRefused is returned when the connection was refused,
	// usually because the Tor proxy is not running.
	ErrConnectionRefused = errors.New("connection refused; the Tor proxy may not be running")

	// ErrUnknownHost is returned when the host name does not resolve.
	ErrUnknownHost = errors.New("unknown host")

	// ErrEmptyResponse is returned when the server closed the connection
	// without answering.
	ErrEmptyResponse = errors.New("server closed the connection without a response")

	// ErrUnexpectedStatus is returned for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrMaxRetries is returned when every attempt failed with a transient
	// error.
	ErrMaxRetries = errors.New("maximum retries reached")
)

// fatalErrors stop the retry loop immediately.
var fatalErrors = []error{
	ErrInvalidOnion,
	ErrTimeout,
	ErrUnreachable,
	ErrConnectionRefused,
	ErrUnknownHost,
}

// IsFatal reports whether err should not be retried.
func IsFatal(err error) bool {
	for _, fatal := range fatalErrors {
		if errors.Is(err, fatal) {
			return true
		}
	}
	return false
}

// classify maps transport errors onto the package sentinels, keeping the
// original error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, tor.ErrV2AddressDeprecated) || errors.Is(err, tor.ErrInvalidOnionAddress) {
		return fmt.Errorf("%w: %w", ErrInvalidOnion, err)
	}

	msg := err.Error()
	var netErr net.Error
	switch {
	case strings.Contains(msg, "unknown code: 246") || strings.Contains(msg, "0xF6"):
		// SOCKS5 extended error: Tor refused the onion address.
		return fmt.Errorf("%w: %w", ErrInvalidOnion, err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout(),
		strings.Contains(msg, "timeout"):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case strings.Contains(msg, "host unreachable"), strings.Contains(msg, "network is unreachable"):
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	case strings.Contains(msg, "connection refused"):
		return fmt.Errorf("%w: %w", ErrConnectionRefused, err)
	case strings.Contains(msg, "no such host"):
		return fmt.Errorf("%w: %w", ErrUnknownHost, err)
	case strings.Contains(msg, "EOF"):
		return fmt.Errorf("%w: %w", ErrEmptyResponse, err)
	}
	return err
}

// IsProxyError reports whether err came from failing to reach the local
// Tor proxy rather than the target site.
func IsProxyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "proxyconnect tcp") ||
		strings.Contains(msg, "dial tcp 127.0.0.1") ||
		errors.Is(err, tor.ErrProxyCannotConnect) ||
		errors.Is(err, tor.ErrNoProxy)
}
