package session

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type failingStore struct {
	state State
}

func (s *failingStore) Load() (State, error) { return s.state, nil }
func (s *failingStore) Save(State) error     { return errors.New("disk full") }

// TestOpen tests loading persisted state.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("empty store starts logged out on the dashboard", func(t *testing.T) {
		t.Parallel()
		s, err := Open(NewMemoryStore(State{}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Authenticated() {
			t.Error("expected unauthenticated session")
		}
		if s.ActiveTab() != TabDashboard {
			t.Errorf("expected %q, got %q", TabDashboard, s.ActiveTab())
		}
	})

	t.Run("unknown stored tab falls back to default", func(t *testing.T) {
		t.Parallel()
		s, err := Open(NewMemoryStore(State{Token: "t", ActiveTab: "reports"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.ActiveTab() != DefaultTab {
			t.Errorf("expected %q, got %q", DefaultTab, s.ActiveTab())
		}
	})

	t.Run("stored tab is restored", func(t *testing.T) {
		t.Parallel()
		s, err := Open(NewMemoryStore(State{Token: "t", ActiveTab: TabLogs}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.ActiveTab() != TabLogs {
			t.Errorf("expected %q, got %q", TabLogs, s.ActiveTab())
		}
	})
}

// TestSessionToken tests storing and evicting the bearer token.
func TestSessionToken(t *testing.T) {
	t.Parallel()

	t.Run("SetToken resets the active tab", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore(State{ActiveTab: TabSettings})
		s, _ := Open(store)

		if err := s.SetToken("abc"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		st, _ := store.Load()
		if st.Token != "abc" {
			t.Errorf("expected persisted token 'abc', got %q", st.Token)
		}
		if st.ActiveTab != TabDashboard {
			t.Errorf("expected tab reset to dashboard, got %q", st.ActiveTab)
		}
	})

	t.Run("SetToken rejects empty token", func(t *testing.T) {
		t.Parallel()
		s, _ := Open(NewMemoryStore(State{}))
		if err := s.SetToken(""); !errors.Is(err, ErrEmptyToken) {
			t.Errorf("expected ErrEmptyToken, got %v", err)
		}
	})

	t.Run("EvictToken clears only the token", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore(State{Token: "abc", ActiveTab: TabHistory, RandomUA: true})
		s, _ := Open(store)

		s.EvictToken()
		st, _ := store.Load()
		if st.Token != "" {
			t.Errorf("expected empty token, got %q", st.Token)
		}
		if !st.RandomUA {
			t.Error("expected RandomUA to survive eviction")
		}
	})

	t.Run("failed save leaves memory unchanged", func(t *testing.T) {
		t.Parallel()
		s, _ := Open(&failingStore{state: State{Token: "old"}})
		if err := s.SetToken("new"); err == nil {
			t.Fatal("expected error")
		}
		if s.Token() != "old" {
			t.Errorf("expected token 'old', got %q", s.Token())
		}
	})

	t.Run("EvictToken clears memory when the save fails", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		s, _ := Open(&failingStore{state: State{Token: "rejected"}}, WithLogger(logger))

		s.EvictToken()
		if s.Token() != "" {
			t.Errorf("expected token evicted, got %q", s.Token())
		}
		if s.Authenticated() {
			t.Error("expected session to be unauthenticated")
		}
		if !strings.Contains(buf.String(), "failed to persist token eviction") {
			t.Errorf("expected eviction failure to be logged, got %q", buf.String())
		}
	})
}

// TestSessionActiveTab tests tab persistence gating.
func TestSessionActiveTab(t *testing.T) {
	t.Parallel()

	t.Run("not recorded while logged out", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore(State{})
		s, _ := Open(store)
		if err := s.SetActiveTab(TabLogs); !errors.Is(err, ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if store.Saves() != 0 {
			t.Errorf("expected no saves, got %d", store.Saves())
		}
	})

	t.Run("recorded while logged in", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore(State{Token: "abc"})
		s, _ := Open(store)
		if err := s.SetActiveTab(TabScanner); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		st, _ := store.Load()
		if st.ActiveTab != TabScanner {
			t.Errorf("expected %q, got %q", TabScanner, st.ActiveTab)
		}
	})

	t.Run("unknown tab rejected", func(t *testing.T) {
		t.Parallel()
		s, _ := Open(NewMemoryStore(State{Token: "abc"}))
		if err := s.SetActiveTab("reports"); !errors.Is(err, ErrUnknownTab) {
			t.Errorf("expected ErrUnknownTab, got %v", err)
		}
	})

	t.Run("unchanged value is not rewritten", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore(State{Token: "abc", ActiveTab: TabLogs})
		s, _ := Open(store)
		if err := s.SetActiveTab(TabLogs); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.Saves() != 0 {
			t.Errorf("expected no saves, got %d", store.Saves())
		}
	})
}

// TestSessionLogout tests that logout keeps preference flags.
func TestSessionLogout(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(State{Token: "abc", ActiveTab: TabLogs, RandomUA: true, WatchlistEnabled: true})
	s, _ := Open(store)

	if err := s.Logout(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st, _ := store.Load()
	want := State{RandomUA: true, WatchlistEnabled: true}
	if st != want {
		t.Errorf("expected %+v, got %+v", want, st)
	}
}

// TestSessionFlags tests the preference flags.
func TestSessionFlags(t *testing.T) {
	t.Parallel()

	s, _ := Open(NewMemoryStore(State{}))
	if err := s.SetRandomUA(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetWatchlistEnabled(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.RandomUA() || !s.WatchlistEnabled() {
		t.Errorf("expected both flags set, got %+v", s.Snapshot())
	}
}

// TestFileStore tests YAML persistence on disk.
func TestFileStore(t *testing.T) {
	t.Parallel()

	t.Run("missing file loads zero state", func(t *testing.T) {
		t.Parallel()
		store := NewFileStore(filepath.Join(t.TempDir(), "session.yaml"))
		st, err := store.Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if st != (State{}) {
			t.Errorf("expected zero state, got %+v", st)
		}
	})

	t.Run("round trip through a new session", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "nested", "session.yaml")

		first, err := Open(NewFileStore(path))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := first.SetToken("tok"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := first.SetActiveTab(TabHistory); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		second, err := Open(NewFileStore(path))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if second.Token() != "tok" {
			t.Errorf("expected token 'tok', got %q", second.Token())
		}
		if second.ActiveTab() != TabHistory {
			t.Errorf("expected %q, got %q", TabHistory, second.ActiveTab())
		}
	})

	t.Run("file is owner-only", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "session.yaml")
		if err := NewFileStore(path).Save(State{Token: "x"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("expected mode 0600, got %o", info.Mode().Perm())
		}
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "session.yaml")
		if err := os.WriteFile(path, []byte("auth_token: [unclosed"), 0600); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := NewFileStore(path).Load(); err == nil {
			t.Error("expected parse error")
		}
	})
}

// TestTabNavigation tests tab cycling and parsing.
func TestTabNavigation(t *testing.T) {
	t.Parallel()

	if TabSettings.Next() != TabDashboard {
		t.Errorf("expected wrap to dashboard, got %q", TabSettings.Next())
	}
	if TabDashboard.Prev() != TabSettings {
		t.Errorf("expected wrap to settings, got %q", TabDashboard.Prev())
	}
	if _, err := ParseTab("nope"); !errors.Is(err, ErrUnknownTab) {
		t.Errorf("expected ErrUnknownTab, got %v", err)
	}
	if tab, err := ParseTab("logs"); err != nil || tab != TabLogs {
		t.Errorf("expected logs, got %q (%v)", tab, err)
	}
}
