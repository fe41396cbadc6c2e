package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nao1215/onionboard/internal/database"
	"github.com/nao1215/onionboard/internal/model"
	"github.com/nao1215/onionboard/internal/scraper"
)

const forumPage = `<html><head><title>Forum</title><meta name="generator" content="MyBB"></head>
<body><div class="post"><span class="author">eve</span><div class="content">Hello board</div></div></body></html>`

const blogPage = `<html><head><title>Blog</title></head><body><p>Nothing here.</p></body></html>`

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newSite(t *testing.T, page string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func openStore(t *testing.T) *database.Store {
	t.Helper()
	store, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func directFactory(ctx context.Context) (*scraper.Scanner, error) {
	return scraper.NewScanner(http.DefaultClient, scraper.WithRetryDelay(time.Millisecond), scraper.WithMaxAttempts(1)), nil
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		s := New(nil, directFactory)
		if s.concurrency != DefaultConcurrency || s.spec != DefaultSpec {
			t.Errorf("unexpected defaults: concurrency %d, spec %s", s.concurrency, s.spec)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()
		s := New(nil, directFactory, WithConcurrency(0))
		if s.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency, got %d", s.concurrency)
		}
	})

	t.Run("invalid spec", func(t *testing.T) {
		t.Parallel()
		s := New(nil, directFactory, WithSpec("not a schedule"))
		if err := s.Start(context.Background()); err == nil {
			t.Error("expected error for invalid spec")
		}
	})
}

func TestRunDue(t *testing.T) {
	t.Parallel()
	store := openStore(t)
	ctx := context.Background()

	forum := newSite(t, forumPage)
	blog := newSite(t, blogPage)
	future := fixedNow.Add(time.Hour)

	forumEntry, err := store.CreateWatchlistEntry(ctx, model.WatchlistEntry{URL: forum, IntervalMinutes: 30, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateWatchlistEntry(ctx, model.WatchlistEntry{URL: blog, IntervalMinutes: 60, IsActive: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateWatchlistEntry(ctx, model.WatchlistEntry{URL: blog, IntervalMinutes: 60, NextCheck: &future, IsActive: true}); err != nil {
		t.Fatal(err)
	}

	s := New(store, directFactory, WithClock(func() time.Time { return fixedNow }), WithConcurrency(2))
	summary, err := s.RunDue(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Summary{Due: 2, Saved: 1, NotForum: 1}
	if summary != want {
		t.Errorf("expected %+v, got %+v", want, summary)
	}

	history, err := store.History(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Source != model.SourceWatchlist {
		t.Fatalf("expected one watchlist scan, got %+v", history)
	}

	got, err := store.GetWatchlistEntry(ctx, forumEntry.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.NextCheck == nil || !got.NextCheck.Equal(fixedNow.Add(30*time.Minute)) {
		t.Errorf("expected next check in 30 minutes, got %v", got.NextCheck)
	}
	if got.LastChecked == nil || !got.LastChecked.Equal(fixedNow) {
		t.Errorf("expected last checked now, got %v", got.LastChecked)
	}

	again, err := s.RunDue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again.Due != 0 {
		t.Errorf("expected nothing due on second run, got %d", again.Due)
	}

	stats, err := store.LogStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Success != 1 || stats.Warning != 1 {
		t.Errorf("expected one success and one warning, got %+v", stats)
	}
}

func TestRunDueFailures(t *testing.T) {
	t.Parallel()

	t.Run("unreachable site is rescheduled", func(t *testing.T) {
		t.Parallel()
		store := openStore(t)
		ctx := context.Background()

		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		entry, err := store.CreateWatchlistEntry(ctx, model.WatchlistEntry{URL: url, IntervalMinutes: 10, IsActive: true})
		if err != nil {
			t.Fatal(err)
		}

		s := New(store, directFactory, WithClock(func() time.Time { return fixedNow }))
		summary, err := s.RunDue(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if summary.Failed != 1 {
			t.Errorf("expected one failure, got %+v", summary)
		}
		got, err := store.GetWatchlistEntry(ctx, entry.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.NextCheck == nil || !got.NextCheck.Equal(fixedNow.Add(10*time.Minute)) {
			t.Errorf("expected failed entry to be rescheduled, got %v", got.NextCheck)
		}
	})

	t.Run("proxy failure leaves entries due", func(t *testing.T) {
		t.Parallel()
		store := openStore(t)
		ctx := context.Background()

		if _, err := store.CreateWatchlistEntry(ctx, model.WatchlistEntry{URL: "http://a.onion", IntervalMinutes: 10, IsActive: true}); err != nil {
			t.Fatal(err)
		}
		errProxy := errors.New("no proxy")
		s := New(store, func(context.Context) (*scraper.Scanner, error) { return nil, errProxy },
			WithClock(func() time.Time { return fixedNow }))

		if _, err := s.RunDue(ctx); !errors.Is(err, errProxy) {
			t.Errorf("expected proxy error, got %v", err)
		}
		due, err := store.DueWatchlist(ctx, fixedNow)
		if err != nil {
			t.Fatal(err)
		}
		if len(due) != 1 {
			t.Errorf("expected entry to stay due, got %d", len(due))
		}
		stats, err := store.LogStats(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if stats.Error != 1 {
			t.Errorf("expected one error log, got %+v", stats)
		}
	})
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	store := openStore(t)

	s := New(store, directFactory)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Stop()

	// Stop without Start is a no-op.
	New(store, directFactory).Stop()
}
