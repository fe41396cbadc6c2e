package tui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nao1215/onionboard/internal/api"
	"github.com/nao1215/onionboard/internal/session"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultLoginResetDelay is how long a rejected login stays on screen
// before the form returns to idle.
const DefaultLoginResetDelay = 3 * time.Second

// env is shared by every view of one program.
type env struct {
	client    *api.Client
	sess      *session.Session
	logger    *slog.Logger
	now       func() time.Time
	exportDir string
}

// resultMsg carries the outcome of a request back to the view that issued
// it. view is the mount id and gen the issuing generation.
type resultMsg struct {
	view  uint64
	gen   uint64
	kind  string
	value any
	err   error
}

// base is embedded by every tab view.
type base struct {
	env *env
	id  uint64
	gen uint64
}

// request runs fn off the event loop and tags the result.
func (b *base) request(gen uint64, kind string, fn func(ctx context.Context) (any, error)) tea.Cmd {
	id := b.id
	return func() tea.Msg {
		v, err := fn(context.Background())
		return resultMsg{view: id, gen: gen, kind: kind, value: v, err: err}
	}
}

// view is one mounted tab.
type view interface {
	init() tea.Cmd
	update(msg tea.Msg) tea.Cmd
	render(width, height int) string
	// capturing reports whether the view wants every key, for example
	// while a text field has focus.
	capturing() bool
	help() string
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger. Read failures are logged here rather than
// shown on screen.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		m.env.logger = logger
	}
}

// WithLoginResetDelay overrides DefaultLoginResetDelay.
func WithLoginResetDelay(d time.Duration) Option {
	return func(m *Model) {
		m.resetDelay = d
	}
}

// WithExportDir sets where log exports are written.
func WithExportDir(dir string) Option {
	return func(m *Model) {
		m.env.exportDir = dir
	}
}

// WithClock replaces the clock used for export names and timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		m.env.now = now
	}
}

// Model is the root bubbletea model.
type Model struct {
	env        *env
	resetDelay time.Duration
	login      *loginModel

	tab    session.Tab
	active view
	viewID uint64

	width  int
	height int
	status string
}

// New returns the root model. Without a stored token it starts on the
// login gate; otherwise the stored tab is resumed.
func New(client *api.Client, sess *session.Session, opts ...Option) Model {
	m := Model{
		env:        &env{client: client, sess: sess, now: time.Now, exportDir: "."},
		resetDelay: DefaultLoginResetDelay,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.env.logger == nil {
		m.env.logger = slog.Default()
	}
	m.login = newLoginModel(m.env, m.resetDelay)
	if sess.Authenticated() {
		m.mount(sess.ActiveTab())
	}
	return m
}

// Run starts the dashboard on the alternate screen and blocks until the
// operator quits.
func Run(ctx context.Context, client *api.Client, sess *session.Session, opts ...Option) error {
	program := tea.NewProgram(New(client, sess, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.active != nil {
		return m.active.init()
	}
	return m.login.init()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case resultMsg:
		if m.active == nil || msg.view != m.viewID {
			m.env.logger.Debug("dropping response for unmounted view", "kind", msg.kind)
			return m, nil
		}
	}

	if !m.env.sess.Authenticated() {
		return m.updateLogin(msg)
	}
	if m.active == nil {
		m.mount(m.env.sess.ActiveTab())
		return m, m.active.init()
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		if next, cmd, handled := m.handleShellKey(key); handled {
			return next, cmd
		}
	}

	return m, m.active.update(msg)
}

func (m Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.active != nil {
		// A 401 evicted the token behind the mounted view.
		m.unmount()
		m.status = "Session expired. Please log in again."
		return m, nil
	}
	cmd := m.login.update(msg)
	if !m.env.sess.Authenticated() {
		return m, cmd
	}
	m.status = ""
	m.mount(m.env.sess.ActiveTab())
	return m, tea.Batch(cmd, m.active.init())
}

// handleShellKey handles keys that belong to the shell rather than the
// view. ctrl+l always logs out; the other shortcuts yield to a view that
// is capturing input.
func (m Model) handleShellKey(key tea.KeyMsg) (Model, tea.Cmd, bool) {
	k := key.String()
	if k == "ctrl+l" {
		if err := m.env.sess.Logout(); err != nil {
			m.env.logger.Error("failed to clear session", "error", err)
		}
		m.unmount()
		m.status = "Logged out."
		return m, nil, true
	}
	if m.active.capturing() {
		return m, nil, false
	}

	switch k {
	case "q":
		return m, tea.Quit, true
	case "tab":
		return m.switchTab(m.tab.Next())
	case "shift+tab":
		return m.switchTab(m.tab.Prev())
	}
	if len(k) == 1 && k[0] >= '1' && int(k[0]-'1') < len(session.Tabs) {
		return m.switchTab(session.Tabs[k[0]-'1'])
	}
	return m, nil, false
}

func (m Model) switchTab(tab session.Tab) (Model, tea.Cmd, bool) {
	if tab == m.tab {
		return m, nil, true
	}
	m.mount(tab)
	return m, m.active.init(), true
}

// mount replaces the active view and persists the tab. Responses still in
// flight for the old view are dropped by the id check in Update.
func (m *Model) mount(tab session.Tab) {
	m.viewID++
	m.tab = tab
	b := base{env: m.env, id: m.viewID}
	switch tab {
	case session.TabScanner:
		m.active = newScannerView(b)
	case session.TabHistory:
		m.active = newHistoryView(b)
	case session.TabLogs:
		m.active = newLogsView(b)
	case session.TabSettings:
		m.active = newSettingsView(b)
	default:
		m.tab = session.TabDashboard
		m.active = newDashboardView(b)
	}
	if err := m.env.sess.SetActiveTab(m.tab); err != nil {
		m.env.logger.Warn("failed to persist active tab", "tab", m.tab, "error", err)
	}
}

func (m *Model) unmount() {
	m.viewID++
	m.active = nil
	m.tab = ""
	m.login.reset()
}

// Tab returns the mounted tab, or the empty tab on the login gate.
func (m Model) Tab() session.Tab {
	return m.tab
}

// View implements tea.Model.
func (m Model) View() string {
	width, height := m.width, m.height
	if width == 0 {
		width = 100
	}
	if height == 0 {
		height = 30
	}

	if m.active == nil {
		out := m.login.render(width)
		if m.status != "" {
			out += "\n" + mutedStyle.Render(m.status)
		}
		return out
	}

	header := m.renderTabs()
	footer := m.renderFooter(width)
	bodyHeight := height - lipgloss.Height(header) - lipgloss.Height(footer) - 2
	body := m.active.render(width, max(bodyHeight, 5))
	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", footer)
}

func (m Model) renderTabs() string {
	title := cases.Title(language.English)
	parts := []string{titleStyle.Render("Onionboard")}
	for i, tab := range session.Tabs {
		label := title.String(string(tab))
		label = string(rune('1'+i)) + " " + label
		if tab == m.tab {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

func (m Model) renderFooter(width int) string {
	shell := "tab/1-5 switch · ctrl+l logout · q quit"
	if m.active.capturing() {
		shell = "ctrl+l logout · ctrl+c quit"
	}
	return mutedStyle.Render(truncate(m.active.help()+" · "+shell, width))
}
