package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/onionboard/internal/config"
	"github.com/nao1215/onionboard/internal/database"
	"github.com/nao1215/onionboard/internal/model"
	"github.com/nao1215/onionboard/internal/scraper"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testUser     = "admin"
	testPassword = "correct horse"
)

const forumPage = `<html><head><title>Market</title><meta name="generator" content="phpBB"></head>
<body><div class="post"><span class="author">alice</span><div class="content">Selling cards here</div></div></body></html>`

const blogPage = `<html><head><title>Blog</title></head><body><p>Hello.</p></body></html>`

type testEnv struct {
	srv   *httptest.Server
	store *database.Store
	token string
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	store, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if _, err := SeedAdmin(context.Background(), store, testUser, testPassword); err != nil {
		t.Fatalf("failed to seed admin: %v", err)
	}

	cfg := config.NewServerConfig()
	cfg.JWTSecret = testSecret
	s := New(cfg, store, opts...)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	env := &testEnv{srv: srv, store: store}
	var login model.LoginResponse
	resp := env.do(t, http.MethodPost, "/api/login", model.LoginRequest{Username: testUser, Password: testPassword}, &login)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected login to succeed, got %d", resp.StatusCode)
	}
	env.token = login.Token
	return env
}

// do sends a request with the env token (when set) and decodes the JSON
// answer into out.
func (e *testEnv) do(t *testing.T, method, path string, in, out any) *http.Response {
	t.Helper()
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, e.srv.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode %s %s: %v", method, path, err)
		}
	}
	return resp
}

// siteFactory serves page from a local site and returns a factory whose
// scanners reach it, plus the site URL to scan.
func siteFactory(t *testing.T, page string) (scraper.Factory, string) {
	t.Helper()
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	t.Cleanup(site.Close)
	return func(ctx context.Context) (*scraper.Scanner, error) {
		return scraper.NewScanner(site.Client(), scraper.WithRetryDelay(time.Millisecond)), nil
	}, site.URL
}

func TestHealthAndAuth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	t.Run("health is public", func(t *testing.T) {
		anon := &testEnv{srv: env.srv}
		var out map[string]string
		resp := anon.do(t, http.MethodGet, "/api/health", nil, &out)
		if resp.StatusCode != http.StatusOK || out["status"] != "ok" {
			t.Errorf("expected ok, got %d %v", resp.StatusCode, out)
		}
	})

	t.Run("protected route without token", func(t *testing.T) {
		anon := &testEnv{srv: env.srv}
		var out model.ErrorResponse
		resp := anon.do(t, http.MethodGet, "/api/logs", nil, &out)
		if resp.StatusCode != http.StatusUnauthorized || out.Error == "" {
			t.Errorf("expected 401 with error, got %d %+v", resp.StatusCode, out)
		}
	})

	t.Run("protected route with bad token", func(t *testing.T) {
		bad := &testEnv{srv: env.srv, token: "not-a-jwt"}
		resp := bad.do(t, http.MethodGet, "/api/logs", nil, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		anon := &testEnv{srv: env.srv}
		var out model.ErrorResponse
		resp := anon.do(t, http.MethodPost, "/api/login", model.LoginRequest{Username: testUser, Password: "nope"}, &out)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
		if out.Error != ErrInvalidCredentials.Error() {
			t.Errorf("expected %q, got %q", ErrInvalidCredentials.Error(), out.Error)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		anon := &testEnv{srv: env.srv}
		resp := anon.do(t, http.MethodPost, "/api/login", model.LoginRequest{Username: testUser}, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("cors preflight", func(t *testing.T) {
		anon := &testEnv{srv: env.srv}
		resp := anon.do(t, http.MethodOptions, "/api/scan", nil, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("expected 204, got %d", resp.StatusCode)
		}
		if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
			t.Error("expected CORS header")
		}
	})
}

func TestAuthenticator(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewAuthenticator(testSecret, time.Hour)
	a.now = func() time.Time { return now }

	token, err := a.Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	sub, err := a.Verify(token)
	if err != nil || sub != "alice" {
		t.Errorf("expected alice, got %q (%v)", sub, err)
	}

	a.now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, err := a.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected expired token to fail, got %v", err)
	}

	other := NewAuthenticator("another-secret-of-enough-length", time.Hour)
	other.now = func() time.Time { return now }
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected wrong secret to fail, got %v", err)
	}
}

func TestSeedAdmin(t *testing.T) {
	t.Parallel()
	store, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	generated, err := SeedAdmin(ctx, store, "root", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(generated) < 16 {
		t.Errorf("expected generated password, got %q", generated)
	}
	again, err := SeedAdmin(ctx, store, "root", "")
	if err != nil {
		t.Fatal(err)
	}
	if again != "" {
		t.Errorf("expected no second seed, got %q", again)
	}
}

func TestScan(t *testing.T) {
	t.Parallel()

	t.Run("forum is saved", func(t *testing.T) {
		t.Parallel()
		factory, target := siteFactory(t, forumPage)
		env := newTestEnv(t, WithScannerFactory(factory))

		var out model.ScanResponse
		resp := env.do(t, http.MethodPost, "/api/scan", model.ScanRequest{URL: target}, &out)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if !out.Saved || out.Data == nil || !out.Data.IsForum || out.Data.PostCount != 1 {
			t.Fatalf("unexpected response %+v", out)
		}

		var history []model.HistoryItem
		env.do(t, http.MethodGet, "/api/history", nil, &history)
		if len(history) != 1 || history[0].Source != model.SourceManual {
			t.Fatalf("expected one manual history row, got %+v", history)
		}

		var detail model.ScanDetail
		resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/history/%d", history[0].ID), nil, &detail)
		if resp.StatusCode != http.StatusOK || len(detail.Threads) != 1 {
			t.Errorf("unexpected detail %d %+v", resp.StatusCode, detail)
		}

		var logs []model.LogEntry
		env.do(t, http.MethodGet, "/api/logs", nil, &logs)
		if len(logs) == 0 || logs[0].Level != model.LogLevelSuccess || logs[0].Source != sourceScanner {
			t.Errorf("expected newest log to be a scanner success, got %+v", logs)
		}
	})

	t.Run("non forum is not saved", func(t *testing.T) {
		t.Parallel()
		factory, target := siteFactory(t, blogPage)
		env := newTestEnv(t, WithScannerFactory(factory))

		var out model.ScanResponse
		resp := env.do(t, http.MethodPost, "/api/scan", model.ScanRequest{URL: target}, &out)
		if resp.StatusCode != http.StatusOK || out.Saved {
			t.Fatalf("expected unsaved 200, got %d %+v", resp.StatusCode, out)
		}

		var history []model.HistoryItem
		env.do(t, http.MethodGet, "/api/history", nil, &history)
		if len(history) != 0 {
			t.Errorf("expected empty history, got %d rows", len(history))
		}
		var stats model.LogStats
		env.do(t, http.MethodGet, "/api/logs/stats", nil, &stats)
		if stats.Warning != 1 {
			t.Errorf("expected one warning, got %+v", stats)
		}
	})

	t.Run("proxy unavailable", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, WithScannerFactory(func(ctx context.Context) (*scraper.Scanner, error) {
			return nil, errors.New("no working Tor proxy found")
		}))

		var out model.ErrorResponse
		resp := env.do(t, http.MethodPost, "/api/scan", model.ScanRequest{URL: "example"}, &out)
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", resp.StatusCode)
		}
		if out.Details == "" {
			t.Error("expected details in error response")
		}
	})

	t.Run("site failure", func(t *testing.T) {
		t.Parallel()
		site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(site.Close)
		env := newTestEnv(t, WithScannerFactory(func(ctx context.Context) (*scraper.Scanner, error) {
			return scraper.NewScanner(site.Client(), scraper.WithRetryDelay(time.Millisecond), scraper.WithMaxAttempts(1)), nil
		}))

		resp := env.do(t, http.MethodPost, "/api/scan", model.ScanRequest{URL: site.URL}, nil)
		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", resp.StatusCode)
		}
	})

	t.Run("missing url", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		resp := env.do(t, http.MethodPost, "/api/scan", model.ScanRequest{}, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestHistoryDetailNotFound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	if resp := env.do(t, http.MethodGet, "/api/history/42", nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/api/history/abc", nil, nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSettings(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	t.Run("keywords crud", func(t *testing.T) {
		var created model.Keyword
		resp := env.do(t, http.MethodPost, "/api/settings/keywords", model.Keyword{Word: "cards", Category: "Fraud"}, &created)
		if resp.StatusCode != http.StatusOK || created.ID == 0 {
			t.Fatalf("unexpected create %d %+v", resp.StatusCode, created)
		}

		resp = env.do(t, http.MethodPost, "/api/settings/keywords", model.Keyword{Word: "cards"}, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400 for missing category, got %d", resp.StatusCode)
		}

		var updated model.Keyword
		env.do(t, http.MethodPut, fmt.Sprintf("/api/settings/keywords/%d", created.ID), model.Keyword{Word: "card", Category: "Fraud"}, &updated)
		if updated.Word != "card" {
			t.Errorf("expected updated word, got %+v", updated)
		}

		resp = env.do(t, http.MethodPut, "/api/settings/keywords/999", model.Keyword{Word: "x", Category: "y"}, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}

		resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/settings/keywords/%d", created.ID), nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		var list []model.Keyword
		env.do(t, http.MethodGet, "/api/settings/keywords", nil, &list)
		if len(list) != 0 {
			t.Errorf("expected empty list, got %+v", list)
		}
	})

	t.Run("user agents use capital ID", func(t *testing.T) {
		var raw map[string]any
		env.do(t, http.MethodPost, "/api/settings/user-agents", model.UserAgent{UserAgent: "curl/8"}, &raw)
		if _, ok := raw["ID"]; !ok {
			t.Errorf("expected ID key, got %v", raw)
		}
		resp := env.do(t, http.MethodDelete, "/api/settings/user-agents/999", nil, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("watchlist normalizes and schedules", func(t *testing.T) {
		var created model.WatchlistEntry
		env.do(t, http.MethodPost, "/api/settings/watchlist", model.WatchlistEntry{URL: "example", IsActive: true}, &created)
		if created.URL != "http://example.onion" {
			t.Errorf("expected normalized url, got %s", created.URL)
		}
		if created.IntervalMinutes != model.DefaultWatchIntervalMinutes {
			t.Errorf("expected default interval, got %d", created.IntervalMinutes)
		}
		if created.NextCheck == nil {
			t.Error("expected next check to be scheduled")
		}

		var msg model.MessageResponse
		resp := env.do(t, http.MethodPut, "/api/settings/watchlist/toggle-all", model.ToggleRequest{IsActive: false}, &msg)
		if resp.StatusCode != http.StatusOK || msg.Message == "" {
			t.Errorf("unexpected toggle response %d %+v", resp.StatusCode, msg)
		}
		var list []model.WatchlistEntry
		env.do(t, http.MethodGet, "/api/settings/watchlist", nil, &list)
		if len(list) != 1 || list[0].IsActive {
			t.Errorf("expected one paused entry, got %+v", list)
		}
	})

	t.Run("watchlist entries default to active", func(t *testing.T) {
		body := map[string]any{"url": "abcdefghijklmnop.onion", "interval_minutes": 30}
		var created model.WatchlistEntry
		resp := env.do(t, http.MethodPost, "/api/settings/watchlist", body, &created)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if !created.IsActive {
			t.Errorf("expected new entry to be active, got %+v", created)
		}

		path := fmt.Sprintf("/api/settings/watchlist/%d", created.ID)
		var updated model.WatchlistEntry
		env.do(t, http.MethodPut, path, map[string]any{"url": created.URL, "interval_minutes": 45}, &updated)
		if !updated.IsActive || updated.IntervalMinutes != 45 {
			t.Errorf("expected active entry with 45 minute interval, got %+v", updated)
		}

		env.do(t, http.MethodPut, path, map[string]any{"url": created.URL, "is_active": false}, &updated)
		if updated.IsActive {
			t.Errorf("expected explicit is_active=false to pause the entry, got %+v", updated)
		}

		resp = env.do(t, http.MethodPut, "/api/settings/watchlist/999", map[string]any{"url": "x"}, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})
}

func TestReset(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/system/reset-db", model.ResetRequest{}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without groups, got %d", resp.StatusCode)
	}

	env.do(t, http.MethodPost, "/api/settings/keywords", model.Keyword{Word: "w", Category: "c"}, nil)

	var msg model.MessageResponse
	resp = env.do(t, http.MethodPost, "/api/system/reset-db", model.ResetRequest{Logs: true, Settings: true}, &msg)
	if resp.StatusCode != http.StatusOK || msg.Message != "Database reset: logs, settings" {
		t.Fatalf("unexpected reset response %d %+v", resp.StatusCode, msg)
	}
	var keywords []model.Keyword
	env.do(t, http.MethodGet, "/api/settings/keywords", nil, &keywords)
	if len(keywords) != 0 {
		t.Errorf("expected keywords to be cleared, got %d", len(keywords))
	}
	var logs []model.LogEntry
	env.do(t, http.MethodGet, "/api/logs", nil, &logs)
	if len(logs) != 1 || logs[0].Source != sourceSystem {
		t.Errorf("expected only the reset entry, got %+v", logs)
	}

	resp = env.do(t, http.MethodDelete, "/api/system/reset-db", nil, &msg)
	if resp.StatusCode != http.StatusOK || msg.Message != "Database reset: history, logs, settings" {
		t.Errorf("unexpected reset-all response %d %+v", resp.StatusCode, msg)
	}
}

func TestStatsAndMetrics(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var offset atomic.Int64
	env := newTestEnv(t, WithClock(func() time.Time { return start.Add(time.Duration(offset.Load())) }))
	offset.Store(int64(time.Hour + 5*time.Minute))

	var stats model.GeneralStats
	resp := env.do(t, http.MethodGet, "/api/stats/general", nil, &stats)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if stats.SystemStatus.Uptime != "1h 5m" {
		t.Errorf("expected uptime 1h 5m, got %s", stats.SystemStatus.Uptime)
	}
	if stats.SystemStatus.TorStatus != model.TorStatusPassive || stats.SystemStatus.Network != "ONLINE" {
		t.Errorf("unexpected system status %+v", stats.SystemStatus)
	}

	metricsResp, err := env.srv.Client().Get(env.srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer metricsResp.Body.Close()
	body, _ := io.ReadAll(metricsResp.Body)
	if !strings.Contains(string(body), "onionboard_http_requests_total") {
		t.Error("expected request counter in metrics output")
	}
	if !strings.Contains(string(body), `route="/api/stats/general"`) {
		t.Error("expected route pattern label in metrics output")
	}
}

func TestFormatUptime(t *testing.T) {
	t.Parallel()

	if got := formatUptime(25*time.Hour + 61*time.Minute); got != "26h 1m" {
		t.Errorf("expected 26h 1m, got %s", got)
	}
	if got := formatUptime(-time.Second); got != "0h 0m" {
		t.Errorf("expected 0h 0m, got %s", got)
	}
}
