package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// State is the persisted session data.
type State struct {
	Token            string `yaml:"auth_token,omitempty"`
	ActiveTab        Tab    `yaml:"active_tab,omitempty"`
	RandomUA         bool   `yaml:"random_ua"`
	WatchlistEnabled bool   `yaml:"watchlist_enabled"`
}

// Store loads and saves State.
type Store interface {
	Load() (State, error)
	Save(State) error
}

// FileStore keeps State in a YAML file readable only by the owner.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path. The file is created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the state file. A missing file yields the zero State.
func (s *FileStore) Load() (State, error) {
	var st State
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, fmt.Errorf("failed to read session file: %w", err)
	}
	if err := yaml.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("failed to parse session file: %w", err)
	}
	return st, nil
}

// Save writes the state file atomically with mode 0600.
func (s *FileStore) Save(st State) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set session file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// MemoryStore keeps State in memory. It is used by tests and by callers
// that must not touch disk.
type MemoryStore struct {
	mu    sync.Mutex
	state State
	saves int
}

// NewMemoryStore returns a store preloaded with st.
func NewMemoryStore(st State) *MemoryStore {
	return &MemoryStore{state: st}
}

// Load returns the stored state.
func (s *MemoryStore) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

// Save replaces the stored state.
func (s *MemoryStore) Save(st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
