// Package database provides SQLite-based storage for the onionboard backend.
//
// The Store keeps:
//   - the operator account used for login
//   - settings: categorisation keywords, user agents and the watchlist
//   - the operator-facing system log
//   - scan history: sites, one stats row per stored scan, threads and posts
//
// SQLite is accessed through modernc.org/sqlite, so the binary stays
// CGO-free. The schema is created on open; the connection pool is limited
// to one connection because SQLite allows a single writer.
package database
