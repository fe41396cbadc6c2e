package model

import (
	"testing"
	"time"
)

// TestWatchlistEntryDue tests the scheduling predicate.
func TestWatchlistEntryDue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	t.Run("active entry without next check is due", func(t *testing.T) {
		t.Parallel()
		if !(WatchlistEntry{IsActive: true}).Due(now) {
			t.Error("expected entry to be due")
		}
	})

	t.Run("inactive entry is never due", func(t *testing.T) {
		t.Parallel()
		if (WatchlistEntry{IsActive: false, NextCheck: &past}).Due(now) {
			t.Error("expected inactive entry not to be due")
		}
	})

	t.Run("respects next check", func(t *testing.T) {
		t.Parallel()
		if !(WatchlistEntry{IsActive: true, NextCheck: &past}).Due(now) {
			t.Error("expected past next check to be due")
		}
		if !(WatchlistEntry{IsActive: true, NextCheck: &now}).Due(now) {
			t.Error("expected next check equal to now to be due")
		}
		if (WatchlistEntry{IsActive: true, NextCheck: &future}).Due(now) {
			t.Error("expected future next check not to be due")
		}
	})
}

// TestWatchlistEntryInterval tests the interval fallback.
func TestWatchlistEntryInterval(t *testing.T) {
	t.Parallel()

	if got := (WatchlistEntry{IntervalMinutes: 5}).Interval(); got != 5*time.Minute {
		t.Errorf("expected 5m, got %v", got)
	}
	if got := (WatchlistEntry{}).Interval(); got != time.Hour {
		t.Errorf("expected default 1h, got %v", got)
	}
}

// TestResetRequestAny tests reset group selection.
func TestResetRequestAny(t *testing.T) {
	t.Parallel()

	if (ResetRequest{}).Any() {
		t.Error("expected empty request to select nothing")
	}
	if !(ResetRequest{Logs: true}).Any() {
		t.Error("expected logs-only request to select something")
	}
	all := ResetAll()
	if !all.History || !all.Logs || !all.Settings {
		t.Errorf("expected all groups selected, got %+v", all)
	}
}
