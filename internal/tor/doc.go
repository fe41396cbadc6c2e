// Package tor routes the backend's scans through the Tor network.
//
// A Client wraps a SOCKS5 dialer and hands out HTTP clients whose
// connections go through Tor. A Resolver decides which proxy to use: an
// address from configuration, an embedded daemon started with tornago, or
// the first of the usual local ports (9050 for the system daemon, 9150 for
// Tor Browser) that answers a SOCKS5 handshake.
package tor
