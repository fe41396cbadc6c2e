package scraper

import (
	"net/url"
	"strings"
)

// NormalizeURL completes a user-typed address: it trims spaces, adds
// "http://" when no scheme is given and, when the host has no explicit port,
// strips trailing dots and appends ".onion" if missing.
// The empty string stays empty.
func NormalizeURL(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	lower := strings.ToLower(input)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		input = "http://" + input
	}

	u, err := url.Parse(input)
	if err != nil {
		return input
	}

	// An explicit port means the operator addressed a specific endpoint.
	if strings.Contains(u.Host, ":") {
		return input
	}

	host := strings.TrimRight(u.Host, ".")
	if !strings.HasSuffix(strings.ToLower(host), ".onion") {
		host += ".onion"
	}
	u.Host = host
	return u.String()
}
