package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/onionboard/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func forumResult(url string) *model.ScanResult {
	return &model.ScanResult{
		URL:         url,
		IsForum:     true,
		Title:       "Forum",
		ThreadCount: 2,
		PostCount:   3,
		Threads: []model.ThreadData{
			{
				Title:    "First",
				Link:     url + "/t/1",
				Author:   "alice",
				Category: "Market",
				Posts: []model.PostData{
					{Author: "alice", Content: "hello"},
					{Author: "bob", Content: "reply"},
				},
			},
			{
				Title:    "Second",
				Category: "General",
				Posts:    []model.PostData{{Author: "carol", Content: "hi"}},
			},
		},
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database file", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "nested")
		s, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()

		if s.Path() != filepath.Join(dir, FileName) {
			t.Errorf("expected path in %s, got %s", dir, s.Path())
		}
		if err := s.Ping(context.Background()); err != nil {
			t.Errorf("ping failed: %v", err)
		}
	})

	t.Run("missing database without create", func(t *testing.T) {
		t.Parallel()
		_, err := Open(t.TempDir(), Options{})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("reopen keeps data", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		s, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.CreateKeyword(context.Background(), model.Keyword{Word: "drugs", Category: "Market"}); err != nil {
			t.Fatal(err)
		}
		_ = s.Close()

		s, err = Open(dir, Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()
		keywords, err := s.ListKeywords(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(keywords) != 1 {
			t.Errorf("expected 1 keyword, got %d", len(keywords))
		}
	})
}

func TestUsers(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.PasswordHash(ctx, "admin"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.CreateUser(ctx, "admin", "hash"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.CreateUser(ctx, "admin", "other"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	hash, err := s.PasswordHash(ctx, "admin")
	if err != nil {
		t.Fatal(err)
	}
	if hash != "hash" {
		t.Errorf("expected hash, got %q", hash)
	}
	n, err := s.CountUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 user, got %d", n)
	}
}

func TestKeywordsAndUserAgents(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	k, err := s.CreateKeyword(ctx, model.Keyword{Word: "card", Category: "Fraud", Color: "#ff0000"})
	if err != nil {
		t.Fatal(err)
	}
	if k.ID == 0 {
		t.Fatal("expected id to be assigned")
	}

	updated, err := s.UpdateKeyword(ctx, k.ID, model.Keyword{Word: "cards", Category: "Fraud"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.ID != k.ID || updated.Word != "cards" {
		t.Errorf("unexpected update result: %+v", updated)
	}
	if _, err := s.UpdateKeyword(ctx, 999, model.Keyword{Word: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteKeyword(ctx, k.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteKeyword(ctx, k.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	ua, err := s.CreateUserAgent(ctx, model.UserAgent{UserAgent: "Mozilla/5.0"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateUserAgent(ctx, ua.ID, model.UserAgent{UserAgent: "curl/8"}); err != nil {
		t.Fatal(err)
	}
	agents, err := s.ListUserAgents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(agents) != 1 || agents[0].UserAgent != "curl/8" {
		t.Errorf("unexpected agents: %+v", agents)
	}
	if err := s.DeleteUserAgent(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWatchlist(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	neverChecked, err := s.CreateWatchlistEntry(ctx, model.WatchlistEntry{URL: "http://a.onion", IntervalMinutes: 60, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	due, err := s.CreateWatchlistEntry(ctx, model.WatchlistEntry{URL: "http://b.onion", IntervalMinutes: 30, NextCheck: &past, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateWatchlistEntry(ctx, model.WatchlistEntry{URL: "http://c.onion", IntervalMinutes: 30, NextCheck: &future, IsActive: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateWatchlistEntry(ctx, model.WatchlistEntry{URL: "http://d.onion", IntervalMinutes: 30, IsActive: false}); err != nil {
		t.Fatal(err)
	}

	t.Run("due entries", func(t *testing.T) {
		entries, err := s.DueWatchlist(ctx, now)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 due entries, got %d", len(entries))
		}
		if entries[0].ID != neverChecked.ID || entries[1].ID != due.ID {
			t.Errorf("unexpected due entries: %+v", entries)
		}
		if entries[1].NextCheck == nil || !entries[1].NextCheck.Equal(past) {
			t.Errorf("expected next check %v, got %v", past, entries[1].NextCheck)
		}
	})

	t.Run("mark checked", func(t *testing.T) {
		next := now.Add(30 * time.Minute)
		if err := s.MarkWatchlistChecked(ctx, due.ID, now, next); err != nil {
			t.Fatal(err)
		}
		got, err := s.GetWatchlistEntry(ctx, due.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.LastChecked == nil || !got.LastChecked.Equal(now) {
			t.Errorf("expected last checked %v, got %v", now, got.LastChecked)
		}
		if got.NextCheck == nil || !got.NextCheck.Equal(next) {
			t.Errorf("expected next check %v, got %v", next, got.NextCheck)
		}
		if err := s.MarkWatchlistChecked(ctx, 999, now, next); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("update and toggle", func(t *testing.T) {
		updated, err := s.UpdateWatchlistEntry(ctx, neverChecked.ID, model.WatchlistEntry{
			URL: "http://a.onion", IntervalMinutes: 15, Description: "main", IsActive: false,
		})
		if err != nil {
			t.Fatal(err)
		}
		if updated.IntervalMinutes != 15 || updated.Description != "main" || updated.IsActive {
			t.Errorf("unexpected update result: %+v", updated)
		}

		n, err := s.SetWatchlistActive(ctx, true)
		if err != nil {
			t.Fatal(err)
		}
		if n != 4 {
			t.Errorf("expected 4 rows toggled, got %d", n)
		}
		entries, err := s.ListWatchlist(ctx)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range entries {
			if !e.IsActive {
				t.Errorf("expected entry %d to be active", e.ID)
			}
		}
	})

	t.Run("get missing", func(t *testing.T) {
		if _, err := s.GetWatchlistEntry(ctx, 999); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestLogs(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	i := 0
	s.now = func() time.Time {
		i++
		return base.Add(time.Duration(i) * time.Second)
	}

	levels := []model.LogLevel{model.LogLevelInfo, model.LogLevelInfo, model.LogLevelWarn, model.LogLevelError, model.LogLevelSuccess}
	for n, level := range levels {
		if err := s.AddLog(ctx, level, "SCANNER", "message "+string(rune('a'+n))); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := s.RecentLogs(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Level != model.LogLevelSuccess || entries[0].Message != "message e" {
		t.Errorf("expected newest entry first, got %+v", entries[0])
	}
	if !entries[0].CreatedAt.Equal(base.Add(5 * time.Second)) {
		t.Errorf("unexpected created_at %v", entries[0].CreatedAt)
	}

	stats, err := s.LogStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := model.LogStats{Total: 5, Info: 2, Warning: 1, Error: 1, Success: 1}
	if stats != want {
		t.Errorf("expected %+v, got %+v", want, stats)
	}
}

func TestSaveScanAndHistory(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()
	first := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	id1, err := s.SaveScan(ctx, forumResult("http://forum.onion"), model.SourceManual, first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id2, err := s.SaveScan(ctx, forumResult("http://forum.onion"), model.SourceWatchlist, first.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	history, err := s.History(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(history))
	}
	if history[0].ID != id2 || history[0].Source != model.SourceWatchlist {
		t.Errorf("expected newest scan first, got %+v", history[0])
	}
	if history[1].ID != id1 || !history[1].LastScan.Equal(first) {
		t.Errorf("unexpected second row %+v", history[1])
	}
	if history[0].Category != "Market" || !history[0].IsForum {
		t.Errorf("expected forum in Market, got %+v", history[0])
	}

	detail, err := s.ScanDetail(ctx, id1)
	if err != nil {
		t.Fatal(err)
	}
	if detail.URL != "http://forum.onion" || len(detail.Threads) != 2 {
		t.Fatalf("unexpected detail %+v", detail)
	}
	posts := detail.Threads[0].Posts
	if len(posts) != 2 || posts[0].Order != 1 || posts[1].Order != 2 || posts[1].Author != "bob" {
		t.Errorf("unexpected posts %+v", posts)
	}
	if len(detail.Threads[1].Posts) != 1 {
		t.Errorf("expected 1 post in second thread, got %d", len(detail.Threads[1].Posts))
	}

	if _, err := s.ScanDetail(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGeneralStats(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 12; i++ {
		url := "http://site" + string(rune('a'+i)) + "abcdefghijklmnopqrstuvwxyz.onion"
		if _, err := s.SaveScan(ctx, forumResult(url), model.SourceManual, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}
	notForum := &model.ScanResult{URL: "http://short.onion"}
	if _, err := s.SaveScan(ctx, notForum, model.SourceManual, base.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	stats, err := s.GeneralStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.SiteCount != 13 || stats.PageCount != 13 {
		t.Errorf("expected 13 sites and pages, got %d and %d", stats.SiteCount, stats.PageCount)
	}
	if stats.ThreadCount != 24 || stats.PostCount != 36 {
		t.Errorf("expected 24 threads and 36 posts, got %d and %d", stats.ThreadCount, stats.PostCount)
	}
	if stats.Distribution.Forums != 12 || stats.Distribution.Sites != 1 {
		t.Errorf("unexpected distribution %+v", stats.Distribution)
	}
	if len(stats.RecentSites) != 7 {
		t.Fatalf("expected 7 recent sites, got %d", len(stats.RecentSites))
	}
	if stats.RecentSites[0].URL != "http://short.onion" {
		t.Errorf("expected newest scan first, got %s", stats.RecentSites[0].URL)
	}
	if len(stats.ContentVolume) != 10 {
		t.Fatalf("expected 10 volume rows, got %d", len(stats.ContentVolume))
	}
	last := stats.ContentVolume[len(stats.ContentVolume)-1]
	if last.Name != "http://short.onion" {
		t.Errorf("expected newest scan last, got %s", last.Name)
	}
	if stats.ContentVolume[0].Name != ShortenName("http://sitedabcdefghijklmnopqrstuvwxyz.onion") {
		t.Errorf("unexpected oldest volume name %s", stats.ContentVolume[0].Name)
	}
}

func TestShortenName(t *testing.T) {
	t.Parallel()

	if got := ShortenName("http://short.onion"); got != "http://short.onion" {
		t.Errorf("expected name unchanged, got %s", got)
	}
	if got := ShortenName("http://abcdefghijklmnop.onion"); got != "http://a...op.onion" {
		t.Errorf("expected http://a...op.onion, got %s", got)
	}
}

func TestReset(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.SaveScan(ctx, forumResult("http://forum.onion"), model.SourceManual, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.AddLog(ctx, model.LogLevelInfo, "SYSTEM", "hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateKeyword(ctx, model.Keyword{Word: "w", Category: "c"}); err != nil {
		t.Fatal(err)
	}

	if err := s.Reset(ctx, model.ResetRequest{History: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	history, err := s.History(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history, got %d rows", len(history))
	}
	logs, err := s.RecentLogs(ctx, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Errorf("expected logs to survive, got %d", len(logs))
	}

	if err := s.Reset(ctx, model.ResetAll()); err != nil {
		t.Fatal(err)
	}
	keywords, err := s.ListKeywords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(keywords) != 0 {
		t.Errorf("expected keywords to be cleared, got %d", len(keywords))
	}
	logs, err = s.RecentLogs(ctx, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 0 {
		t.Errorf("expected logs to be cleared, got %d", len(logs))
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, s := range []string{formatTime(want), "2026-01-02 03:04:05", "2026-01-02T03:04:05"} {
		if got := parseTimestamp(s); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", s, got, want)
		}
	}
	if got := parseTimestamp("garbage"); !got.IsZero() {
		t.Errorf("expected zero time, got %v", got)
	}
}

func TestDueWatchlistBoundary(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	later := now.Add(time.Second)

	atNow, err := s.CreateWatchlistEntry(ctx, model.WatchlistEntry{URL: "http://a.onion", IntervalMinutes: 5, NextCheck: &now, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateWatchlistEntry(ctx, model.WatchlistEntry{URL: "http://b.onion", IntervalMinutes: 5, NextCheck: &later, IsActive: true}); err != nil {
		t.Fatal(err)
	}

	entries, err := s.DueWatchlist(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != atNow.ID {
		t.Errorf("expected only the entry scheduled at now, got %+v", entries)
	}
	for _, e := range entries {
		if !e.Due(now) {
			t.Errorf("expected entry %d to be due", e.ID)
		}
	}
}
