package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type loginState int

const (
	loginIdle loginState = iota
	loginLoading
	loginSuccess
	loginError
)

func (s loginState) String() string {
	switch s {
	case loginLoading:
		return "loading"
	case loginSuccess:
		return "success"
	case loginError:
		return "error"
	default:
		return "idle"
	}
}

type loginResultMsg struct {
	attempt uint64
	token   string
	err     error
}

type loginResetMsg struct {
	attempt uint64
}

// loginModel is the gate shown while no token is stored.
type loginModel struct {
	env     *env
	delay   time.Duration
	inputs  []textinput.Model
	focus   int
	state   loginState
	attempt uint64
}

func newLoginModel(e *env, delay time.Duration) *loginModel {
	username := newInput("username", 64)
	password := newInput("password", 128)
	password.EchoMode = textinput.EchoPassword

	l := &loginModel{env: e, delay: delay, inputs: []textinput.Model{username, password}}
	l.inputs[0].Focus()
	return l
}

// newInput returns a text input with a steady cursor.
func newInput(placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Width = 40
	in.Cursor.SetMode(cursor.CursorStatic)
	return in
}

func (l *loginModel) init() tea.Cmd {
	return nil
}

func (l *loginModel) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loginResultMsg:
		if msg.attempt != l.attempt {
			return nil
		}
		if msg.err != nil {
			l.env.logger.Warn("login rejected", "error", msg.err)
			return l.fail()
		}
		if err := l.env.sess.SetToken(msg.token); err != nil {
			l.env.logger.Error("failed to store token", "error", err)
			return l.fail()
		}
		l.state = loginSuccess
		l.inputs[1].SetValue("")
		return nil

	case loginResetMsg:
		if msg.attempt == l.attempt && l.state == loginError {
			l.state = loginIdle
		}
		return nil

	case tea.KeyMsg:
		return l.handleKey(msg)
	}
	return nil
}

// reset returns the gate to idle after the shell unmounts. The username
// is kept; results of an in-flight attempt are dropped.
func (l *loginModel) reset() {
	l.state = loginIdle
	l.attempt++
	l.inputs[1].SetValue("")
	l.setFocus(1)
}

// fail shows the rejection and schedules the return to idle. The inputs
// keep their values.
func (l *loginModel) fail() tea.Cmd {
	l.state = loginError
	attempt := l.attempt
	return tea.Tick(l.delay, func(time.Time) tea.Msg {
		return loginResetMsg{attempt: attempt}
	})
}

func (l *loginModel) handleKey(key tea.KeyMsg) tea.Cmd {
	if l.state == loginLoading {
		return nil
	}
	switch key.String() {
	case "tab", "down", "shift+tab", "up":
		l.setFocus(1 - l.focus)
		return nil
	case "enter":
		if l.focus == 0 {
			l.setFocus(1)
			return nil
		}
		if l.state == loginError {
			return nil
		}
		return l.submit()
	}

	var cmd tea.Cmd
	l.inputs[l.focus], cmd = l.inputs[l.focus].Update(key)
	return cmd
}

func (l *loginModel) setFocus(i int) {
	l.inputs[l.focus].Blur()
	l.focus = i
	l.inputs[l.focus].Focus()
}

// submit sends one login request.
func (l *loginModel) submit() tea.Cmd {
	l.state = loginLoading
	l.attempt++
	attempt := l.attempt
	username := strings.TrimSpace(l.inputs[0].Value())
	password := l.inputs[1].Value()
	client := l.env.client
	return func() tea.Msg {
		resp, err := client.Login(context.Background(), username, password)
		if err != nil {
			return loginResultMsg{attempt: attempt, err: err}
		}
		return loginResultMsg{attempt: attempt, token: resp.Token}
	}
}

func (l *loginModel) render(width int) string {
	var status string
	switch l.state {
	case loginLoading:
		status = mutedStyle.Render("Signing in...")
	case loginError:
		status = errorStyle.Render("Access denied.")
	case loginSuccess:
		status = successStyle.Render("Signed in.")
	default:
		status = mutedStyle.Render("enter: next/submit · tab: switch field · ctrl+c: quit")
	}

	content := strings.Join([]string{
		titleStyle.Render("Onionboard"),
		"",
		"Username",
		l.inputs[0].View(),
		"",
		"Password",
		l.inputs[1].View(),
		"",
		status,
	}, "\n")
	return boxStyle.MaxWidth(width).Render(content)
}
