package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// State is the manager's current workflow state.
type State int

const (
	// StateLoading means a list fetch is in flight.
	StateLoading State = iota
	// StateIdle shows the fetched list.
	StateIdle
	// StateEditing means one row has a draft.
	StateEditing
	// StateCreating means a create request is in flight.
	StateCreating
	// StateDeleting means a delete request is in flight.
	StateDeleting
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateCreating:
		return "creating"
	case StateDeleting:
		return "deleting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Backend is the remote collection a Manager works against.
type Backend[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, id int64, item T) (T, error)
	Delete(ctx context.Context, id int64) error
}

// Manager drives list, edit, create and delete for one resource.
// It is safe for concurrent use.
type Manager[T any] struct {
	backend Backend[T]
	schema  Schema[T]
	logger  *slog.Logger

	// ops serializes mutations and their follow-up reload.
	ops sync.Mutex

	mu       sync.Mutex
	items    []T
	gen      uint64
	loading  bool
	pending  State
	editing  bool
	editID   int64
	draft    T
	form     T
	lastLoad error
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger that records failed requests.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New returns a manager in the loading state with an empty list.
// Call Reload to fetch the first snapshot.
func New[T any](backend Backend[T], schema Schema[T], opts ...Option) *Manager[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Manager[T]{
		backend: backend,
		schema:  schema,
		logger:  o.logger.With("resource", schema.Name),
		loading: true,
		pending: StateIdle,
		form:    schema.empty(),
	}
}

// Schema returns the resource schema.
func (m *Manager[T]) Schema() Schema[T] {
	return m.schema
}

// State returns the current workflow state.
func (m *Manager[T]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.loading:
		return StateLoading
	case m.pending != StateIdle:
		return m.pending
	case m.editing:
		return StateEditing
	default:
		return StateIdle
	}
}

// Items returns a copy of the last fetched list.
func (m *Manager[T]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]T, len(m.items))
	copy(out, m.items)
	return out
}

// LoadError returns the error of the last applied fetch, if any.
func (m *Manager[T]) LoadError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastLoad
}

// Generation returns the number of the latest fetch started.
func (m *Manager[T]) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// Reload fetches the list. A failed fetch empties the list; the error is
// logged and returned. A response overtaken by a newer Reload is dropped.
func (m *Manager[T]) Reload(ctx context.Context) error {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.loading = true
	m.mu.Unlock()

	items, err := m.backend.List(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		m.logger.Debug("dropping stale list response", "generation", gen, "latest", m.gen)
		return nil
	}
	m.loading = false
	m.lastLoad = err
	if err != nil {
		m.items = nil
		m.logger.Error("failed to load list", "error", err)
		return fmt.Errorf("failed to load %s: %w", m.schema.Name, err)
	}
	m.items = items
	if m.editing && m.indexLocked(m.editID) < 0 {
		m.clearEditLocked()
	}
	return nil
}

// StartEdit opens a draft for the item with key id. Any other draft is
// discarded.
func (m *Manager[T]) StartEdit(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s %d", ErrUnknownItem, m.schema.Name, id)
	}
	m.editing = true
	m.editID = id
	m.draft = m.items[i]
	return nil
}

// Editing returns the key of the row being edited.
func (m *Manager[T]) Editing() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.editID, m.editing
}

// Draft returns the current edit draft.
func (m *Manager[T]) Draft() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft, m.editing
}

// SetEditField changes one field of the draft.
func (m *Manager[T]) SetEditField(name, value string) error {
	f, err := m.schema.Field(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.editing {
		return ErrNotEditing
	}
	return f.Set(&m.draft, value)
}

// CancelEdit discards the draft without contacting the backend.
func (m *Manager[T]) CancelEdit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearEditLocked()
}

// SaveEdit sends the draft with PUT and reloads the list. On failure the
// draft is kept so the operator can retry.
func (m *Manager[T]) SaveEdit(ctx context.Context) error {
	m.ops.Lock()
	defer m.ops.Unlock()

	m.mu.Lock()
	if !m.editing {
		m.mu.Unlock()
		return ErrNotEditing
	}
	id, draft := m.editID, m.draft
	m.mu.Unlock()

	if err := m.schema.Validate(draft); err != nil {
		return err
	}

	if _, err := m.backend.Update(ctx, id, draft); err != nil {
		m.logger.Error("failed to update item", "id", id, "error", err)
		return fmt.Errorf("failed to update %s %d: %w", m.schema.Name, id, err)
	}

	m.mu.Lock()
	if m.editing && m.editID == id {
		m.clearEditLocked()
	}
	m.mu.Unlock()

	m.reloadAfterMutation(ctx)
	return nil
}

// Form returns the new-entry form.
func (m *Manager[T]) Form() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.form
}

// SetNewField changes one field of the new-entry form.
func (m *Manager[T]) SetNewField(name, value string) error {
	f, err := m.schema.Field(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return f.Set(&m.form, value)
}

// ResetForm clears the new-entry form.
func (m *Manager[T]) ResetForm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.form = m.schema.empty()
}

// CanCreate reports whether every required field of the form is filled.
func (m *Manager[T]) CanCreate() bool {
	return m.schema.Validate(m.Form()) == nil
}

// Create submits the form with POST. On success the form is reset and the
// list reloaded; on failure the form is kept.
func (m *Manager[T]) Create(ctx context.Context) error {
	m.ops.Lock()
	defer m.ops.Unlock()

	form := m.Form()
	if err := m.schema.Validate(form); err != nil {
		return err
	}

	m.setPending(StateCreating)
	_, err := m.backend.Create(ctx, form)
	m.setPending(StateIdle)
	if err != nil {
		m.logger.Error("failed to create item", "error", err)
		return fmt.Errorf("failed to create %s: %w", m.schema.Name, err)
	}

	m.ResetForm()
	m.reloadAfterMutation(ctx)
	return nil
}

// Delete removes the item with key id and reloads the list. There is no
// confirmation step.
func (m *Manager[T]) Delete(ctx context.Context, id int64) error {
	m.ops.Lock()
	defer m.ops.Unlock()

	m.setPending(StateDeleting)
	err := m.backend.Delete(ctx, id)
	m.setPending(StateIdle)
	if err != nil {
		m.logger.Error("failed to delete item", "id", id, "error", err)
		return fmt.Errorf("failed to delete %s %d: %w", m.schema.Name, id, err)
	}

	m.mu.Lock()
	if m.editing && m.editID == id {
		m.clearEditLocked()
	}
	m.mu.Unlock()

	m.reloadAfterMutation(ctx)
	return nil
}

// reloadAfterMutation refreshes the list once a mutation has succeeded.
// A failed refresh is logged by Reload and does not fail the mutation.
func (m *Manager[T]) reloadAfterMutation(ctx context.Context) {
	_ = m.Reload(ctx) //nolint:errcheck // logged inside Reload
}

func (m *Manager[T]) setPending(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = s
}

func (m *Manager[T]) indexLocked(id int64) int {
	for i, item := range m.items {
		if m.schema.Key(item) == id {
			return i
		}
	}
	return -1
}

func (m *Manager[T]) clearEditLocked() {
	var zero T
	m.editing = false
	m.editID = 0
	m.draft = zero
}
