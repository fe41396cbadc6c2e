// Package scraper fetches one page of an onion service and decides whether
// it is a forum.
//
// A Scanner performs a single GET through the supplied HTTP client (normally
// routed through Tor by the tor package), retrying transient failures. The
// page is then scored for forum signals with goquery and, when it looks like
// a forum, its posts or thread list are extracted and filed under a
// category chosen from the operator's keywords.
//
// # Usage
//
//	s := scraper.NewScanner(torClient.NewHTTPClient())
//	result, err := s.Scan(ctx, scraper.NormalizeURL("example"), keywords, userAgents)
package scraper
