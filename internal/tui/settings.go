package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nao1215/onionboard/internal/manager"
	"github.com/nao1215/onionboard/internal/model"
)

const (
	kindToggle = "watchlist-toggle"
	kindReset  = "reset"
)

// resetStep is the position in the reset-database flow.
type resetStep int

const (
	resetClosed resetStep = iota
	resetSelect
	resetConfirm
	resetRunning
	resetDone
	resetFailed
)

type settingsView struct {
	base
	panes  []pane
	active int
	notice string

	reset     resetStep
	resetReq  model.ResetRequest
	resetText string
}

func newSettingsView(b base) *settingsView {
	s := &settingsView{base: b}
	client := b.env.client
	opts := []manager.Option{manager.WithLogger(b.env.logger)}
	s.panes = []pane{
		newResourcePane(&s.base, manager.New[model.Keyword](client.Keywords(), manager.KeywordSchema(), opts...)),
		newResourcePane(&s.base, manager.New[model.UserAgent](client.UserAgents(), manager.UserAgentSchema(), opts...)),
		newResourcePane(&s.base, manager.New[model.WatchlistEntry](client.Watchlist(), manager.WatchlistSchema(), opts...)),
	}
	return s
}

func (s *settingsView) init() tea.Cmd {
	return s.reloadAll()
}

func (s *settingsView) reloadAll() tea.Cmd {
	cmds := make([]tea.Cmd, len(s.panes))
	for i, p := range s.panes {
		cmds[i] = p.reload()
	}
	return tea.Batch(cmds...)
}

func (s *settingsView) find(name string) (pane, bool) {
	for _, p := range s.panes {
		if p.name() == name {
			return p, true
		}
	}
	return nil, false
}

func (s *settingsView) watchlist() pane {
	return s.panes[len(s.panes)-1]
}

func (s *settingsView) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case resultMsg:
		return s.handleResult(msg)
	case tea.KeyMsg:
		if s.reset != resetClosed {
			return s.updateReset(msg)
		}
		current := s.panes[s.active]
		if current.capturing() {
			return current.update(msg)
		}
		switch msg.String() {
		case "l", "right", "]":
			s.active = (s.active + 1) % len(s.panes)
			return nil
		case "h", "left", "[":
			s.active = (s.active - 1 + len(s.panes)) % len(s.panes)
			return nil
		case "u":
			enabled := !s.env.sess.RandomUA()
			if err := s.env.sess.SetRandomUA(enabled); err != nil {
				s.env.logger.Error("failed to save preference", "error", err)
			}
			s.notice = "Random user agent " + onOff(enabled) + "."
			return nil
		case "w":
			return s.toggleWatchlist()
		case "R":
			s.reset = resetSelect
			s.resetReq = model.ResetRequest{}
			s.resetText = ""
			return nil
		case "r":
			return current.reload()
		}
		return current.update(msg)
	}
	return nil
}

func (s *settingsView) handleResult(msg resultMsg) tea.Cmd {
	switch msg.kind {
	case kindToggle:
		if msg.gen != s.gen {
			return nil
		}
		enabled, _ := msg.value.(bool)
		if msg.err != nil {
			s.env.logger.Error("failed to toggle watchlist", "error", msg.err)
			s.notice = "Watchlist toggle failed: " + msg.err.Error()
			return nil
		}
		if err := s.env.sess.SetWatchlistEnabled(enabled); err != nil {
			s.env.logger.Error("failed to save preference", "error", err)
		}
		s.notice = "Watchlist " + activeLabel(enabled) + "."
		return s.watchlist().reload()

	case kindReset:
		if msg.gen != s.gen || s.reset != resetRunning {
			return nil
		}
		if msg.err != nil {
			s.env.logger.Error("failed to reset database", "error", msg.err)
			s.reset = resetFailed
			s.resetText = msg.err.Error()
			return nil
		}
		s.reset = resetDone
		if resp, ok := msg.value.(*model.MessageResponse); ok && resp != nil {
			s.resetText = resp.Message
		}
		return s.reloadAll()
	}

	if p, ok := s.find(msg.kind); ok && msg.gen == s.gen {
		p.handle(msg)
	}
	return nil
}

func (s *settingsView) toggleWatchlist() tea.Cmd {
	enabled := !s.env.sess.WatchlistEnabled()
	client := s.env.client
	s.notice = "Updating watchlist..."
	return s.request(s.gen, kindToggle, func(ctx context.Context) (any, error) {
		return enabled, client.ToggleWatchlist(ctx, enabled)
	})
}

// updateReset walks the two-step confirmation: pick the groups, then
// confirm with y.
func (s *settingsView) updateReset(key tea.KeyMsg) tea.Cmd {
	k := key.String()
	switch s.reset {
	case resetSelect:
		switch k {
		case "esc", "q":
			s.reset = resetClosed
		case "h":
			s.resetReq.History = !s.resetReq.History
		case "o":
			s.resetReq.Logs = !s.resetReq.Logs
		case "s":
			s.resetReq.Settings = !s.resetReq.Settings
		case "a":
			all := !(s.resetReq.History && s.resetReq.Logs && s.resetReq.Settings)
			s.resetReq = model.ResetRequest{History: all, Logs: all, Settings: all}
		case "enter":
			if s.resetReq.Any() {
				s.reset = resetConfirm
			}
		}
	case resetConfirm:
		switch k {
		case "y":
			s.reset = resetRunning
			req, client := s.resetReq, s.env.client
			return s.request(s.gen, kindReset, func(ctx context.Context) (any, error) {
				return client.ResetDatabase(ctx, req)
			})
		case "n", "esc", "q":
			s.reset = resetClosed
		}
	case resetDone, resetFailed:
		s.reset = resetClosed
	}
	return nil
}

func (s *settingsView) capturing() bool {
	return s.reset != resetClosed || s.panes[s.active].capturing()
}

func (s *settingsView) help() string {
	switch {
	case s.reset == resetSelect:
		return "h history · o logs · s settings · a all · enter continue · esc cancel"
	case s.reset == resetConfirm:
		return "y reset · n cancel"
	case s.reset != resetClosed:
		return "any key close"
	case s.panes[s.active].capturing():
		return "tab next field · enter save · esc cancel"
	}
	return "h/l pane · a add · e edit · d delete · u random UA · w watchlist on/off · R reset database"
}

func (s *settingsView) render(width, height int) string {
	if s.reset != resetClosed {
		return s.renderReset(width)
	}

	tabs := make([]string, len(s.panes))
	for i, p := range s.panes {
		if i == s.active {
			tabs[i] = activeTabStyle.Render(p.name())
		} else {
			tabs[i] = tabStyle.Render(p.name())
		}
	}
	lines := []string{
		strings.Join(tabs, " "),
		mutedStyle.Render(fmt.Sprintf("Random user agent: %s · Watchlist: %s",
			onOff(s.env.sess.RandomUA()), activeLabel(s.env.sess.WatchlistEnabled()))),
	}
	if s.notice != "" {
		lines = append(lines, mutedStyle.Render(truncate(s.notice, width)))
	}
	lines = append(lines, "")
	lines = append(lines, s.panes[s.active].render(width, height-len(lines)))
	return strings.Join(lines, "\n")
}

func (s *settingsView) renderReset(width int) string {
	check := func(b bool) string {
		if b {
			return "[x]"
		}
		return "[ ]"
	}
	var lines []string
	switch s.reset {
	case resetSelect:
		lines = []string{
			headerStyle.Render("Reset database"),
			"",
			check(s.resetReq.History) + " (h) scan history",
			check(s.resetReq.Logs) + " (o) system logs",
			check(s.resetReq.Settings) + " (s) keywords, user agents and watchlist",
		}
	case resetConfirm:
		lines = []string{
			errorStyle.Render("This permanently deletes: " + resetGroups(s.resetReq)),
			"",
			"Continue? (y/n)",
		}
	case resetRunning:
		lines = []string{mutedStyle.Render("Resetting database...")}
	case resetDone:
		lines = []string{successStyle.Render("Reset complete."), orDash(s.resetText)}
	case resetFailed:
		lines = []string{errorStyle.Render("Reset failed."), truncate(s.resetText, width-8)}
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func resetGroups(req model.ResetRequest) string {
	var groups []string
	if req.History {
		groups = append(groups, "history")
	}
	if req.Logs {
		groups = append(groups, "logs")
	}
	if req.Settings {
		groups = append(groups, "settings")
	}
	return strings.Join(groups, ", ")
}

func activeLabel(enabled bool) string {
	if enabled {
		return "active"
	}
	return "paused"
}
