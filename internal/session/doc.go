// Package session holds the operator's client-side state: the bearer token,
// the last active dashboard tab and two preference flags (random user agent
// and watchlist enabled).
//
// A *Session is created once at start-up with Open and passed explicitly to
// the API client, the CLI commands and the terminal dashboard. Every change
// is written through to a Store synchronously, so a later process resumes
// the same token and tab. Logout clears the token and tab but keeps the
// preference flags.
package session
