// Package server implements the onionboard REST backend.
//
// Routes live under /api. /api/health and /api/login are public; every
// other route requires an HS256 bearer token issued by /api/login.
// Prometheus metrics are served on /metrics from a registry owned by the
// Server, so several servers can run in one process (as tests do).
//
// Operator-visible events (scans, settings changes, resets, logins) are
// recorded in the system log table in addition to the process log.
package server
