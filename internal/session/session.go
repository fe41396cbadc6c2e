package session

import (
	"fmt"
	"log/slog"
	"sync"
)

// Session is the injected client-side state. It is safe for concurrent use.
type Session struct {
	mu     sync.RWMutex
	store  Store
	state  State
	logger *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used to report write-through failures that
// cannot be returned to a caller (token eviction).
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// Open loads the session from store. An unknown stored tab is replaced by
// DefaultTab.
func Open(store Store, opts ...Option) (*Session, error) {
	st, err := store.Load()
	if err != nil {
		return nil, err
	}
	if st.ActiveTab != "" && st.ActiveTab.Index() < 0 {
		st.ActiveTab = DefaultTab
	}

	s := &Session{store: store, state: st}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Token returns the stored bearer token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// Authenticated reports whether a token is stored.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// SetToken stores the token returned by a successful login and resets the
// active tab to DefaultTab.
func (s *Session) SetToken(token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	return s.update(func(st *State) {
		st.Token = token
		st.ActiveTab = DefaultTab
	})
}

// EvictToken removes the token after the backend rejected it. The token is
// dropped from memory even when the store cannot be written; the failure is
// only logged because the caller is an HTTP transport.
func (s *Session) EvictToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Token == "" {
		return
	}
	s.state.Token = ""
	if err := s.store.Save(s.state); err != nil {
		s.logger.Warn("failed to persist token eviction", "error", err)
	}
}

// ActiveTab returns the stored tab, or DefaultTab when none is stored.
func (s *Session) ActiveTab() Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.ActiveTab == "" {
		return DefaultTab
	}
	return s.state.ActiveTab
}

// SetActiveTab persists the active tab. It is only recorded while a token
// is stored; otherwise ErrNotAuthenticated is returned and nothing changes.
func (s *Session) SetActiveTab(tab Tab) error {
	if tab.Index() < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Token == "" {
		return ErrNotAuthenticated
	}
	next := s.state
	next.ActiveTab = tab
	return s.commitLocked(next)
}

// RandomUA reports whether scans should rotate user agents.
func (s *Session) RandomUA() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.RandomUA
}

// SetRandomUA persists the random user agent preference.
func (s *Session) SetRandomUA(enabled bool) error {
	return s.update(func(st *State) {
		st.RandomUA = enabled
	})
}

// WatchlistEnabled reports the last watchlist toggle-all choice.
func (s *Session) WatchlistEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.WatchlistEnabled
}

// SetWatchlistEnabled persists the watchlist toggle-all choice.
func (s *Session) SetWatchlistEnabled(enabled bool) error {
	return s.update(func(st *State) {
		st.WatchlistEnabled = enabled
	})
}

// Logout clears the token and the active tab. Preference flags survive.
func (s *Session) Logout() error {
	return s.update(func(st *State) {
		st.Token = ""
		st.ActiveTab = ""
	})
}

// update applies fn to a copy of the state and commits it. The in-memory
// state only changes when the store accepted the write.
func (s *Session) update(fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state
	fn(&next)
	return s.commitLocked(next)
}

func (s *Session) commitLocked(next State) error {
	if next == s.state {
		return nil
	}
	if err := s.store.Save(next); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.state = next
	return nil
}
