package model

import "time"

// DefaultWatchIntervalMinutes is the re-scan interval given to watchlist
// entries created without one.
const DefaultWatchIntervalMinutes = 60

// Keyword is a categorisation rule. When Word occurs in a scanned thread,
// the thread is filed under Category.
type Keyword struct {
	ID       int64  `json:"id"`
	Word     string `json:"word"`
	Category string `json:"category"`
	Color    string `json:"color"`
}

// UserAgent is a User-Agent string the scanner may rotate through.
type UserAgent struct {
	ID        int64  `json:"ID"`
	UserAgent string `json:"user_agent"`
}

// WatchlistEntry is a target address re-scanned by the backend every
// IntervalMinutes while IsActive is set.
type WatchlistEntry struct {
	ID              int64      `json:"id"`
	URL             string     `json:"url"`
	IntervalMinutes int        `json:"interval_minutes"`
	Description     string     `json:"description"`
	LastChecked     *time.Time `json:"last_checked"`
	NextCheck       *time.Time `json:"next_check"`
	IsActive        bool       `json:"is_active"`
}

// Interval returns the entry's re-scan interval, falling back to the default
// for non-positive values.
func (w WatchlistEntry) Interval() time.Duration {
	if w.IntervalMinutes <= 0 {
		return DefaultWatchIntervalMinutes * time.Minute
	}
	return time.Duration(w.IntervalMinutes) * time.Minute
}

// Due reports whether the entry should be scanned at now.
func (w WatchlistEntry) Due(now time.Time) bool {
	if !w.IsActive {
		return false
	}
	return w.NextCheck == nil || !w.NextCheck.After(now)
}

// ToggleRequest is the body of the watchlist toggle-all endpoint.
type ToggleRequest struct {
	IsActive bool `json:"is_active"`
}

// ResetRequest selects which groups of tables a database reset clears.
type ResetRequest struct {
	History  bool `json:"history"`
	Logs     bool `json:"logs"`
	Settings bool `json:"settings"`
}

// Any reports whether at least one group is selected.
func (r ResetRequest) Any() bool {
	return r.History || r.Logs || r.Settings
}

// ResetAll selects every group.
func ResetAll() ResetRequest {
	return ResetRequest{History: true, Logs: true, Settings: true}
}
