// Package api is the HTTP client for the onionboard backend.
//
// Every request passes through a transport that attaches the bearer token
// held by a TokenSource. When the backend answers 401 the transport asks
// the TokenSource to evict the token, so the next render of the dashboard
// falls back to the login gate. The response is still returned to the
// caller as a *StatusError that matches ErrUnauthorized.
//
// The client does not retry, redirect on failure, or queue requests.
// Concurrent calls are independent.
package api
