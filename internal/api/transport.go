package api

import "net/http"

// TokenSource supplies the bearer token for outgoing requests and drops it
// when the backend rejects it.
type TokenSource interface {
	Token() string
	EvictToken()
}

// authTransport wraps an http.RoundTripper to attach the current bearer
// token and to evict it on 401.
type authTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

// RoundTrip implements http.RoundTripper.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// The token is read per request so a login or eviction between calls
	// takes effect immediately.
	token := t.tokens.Token()

	clone := req.Clone(req.Context())
	if token != "" {
		clone.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(clone)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		t.tokens.EvictToken()
	}
	return resp, nil
}
