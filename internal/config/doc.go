// Package config provides configuration structures and utilities for onionboard.
// It defines the operator client settings (API location, request timeout,
// session file) and the backend settings (listen address, database
// directory, token signing, Tor access and watchlist scheduling).
package config
