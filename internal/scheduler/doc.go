// Package scheduler re-scans watchlist entries in the background.
//
// A cron job fires every minute. Each run selects the active entries that
// are due, scans them concurrently (bounded by an errgroup limit), stores
// forum results with the "watchlist" source and schedules every entry's next
// check one interval later, whatever the outcome.
package scheduler
