package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/nao1215/onionboard/internal/model"
	"github.com/nao1215/onionboard/internal/report"
)

const kindLogs = "logs"

type logsView struct {
	base
	loading   bool
	entries   []model.LogEntry
	filter    report.LogFilter
	search    textinput.Model
	searching bool
	cursor    int
	notice    string
}

func newLogsView(b base) *logsView {
	return &logsView{base: b, search: newInput("search message or source", 128)}
}

func (l *logsView) init() tea.Cmd {
	return l.reload()
}

func (l *logsView) reload() tea.Cmd {
	l.gen++
	l.loading = true
	client := l.env.client
	return l.request(l.gen, kindLogs, func(ctx context.Context) (any, error) {
		return client.Logs(ctx)
	})
}

// visible returns the entries passing the current filter.
func (l *logsView) visible() []model.LogEntry {
	return l.filter.Apply(l.entries)
}

func (l *logsView) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case resultMsg:
		if msg.kind != kindLogs || msg.gen != l.gen {
			return nil
		}
		l.loading = false
		l.entries = nil
		if msg.err != nil {
			l.env.logger.Error("failed to load logs", "error", msg.err)
		} else {
			l.entries, _ = msg.value.([]model.LogEntry)
		}
		l.cursor = clampCursor(l.cursor, len(l.visible()))
		return nil

	case tea.KeyMsg:
		if l.searching {
			return l.updateSearch(msg)
		}
		switch msg.String() {
		case "f":
			l.filter = l.filter.NextLevel()
			l.cursor = 0
		case "/":
			l.searching = true
			return l.search.Focus()
		case "j", "down":
			l.cursor = clampCursor(l.cursor+1, len(l.visible()))
		case "k", "up":
			l.cursor = clampCursor(l.cursor-1, len(l.visible()))
		case "e":
			l.notice = l.export(report.FormatText)
		case "m":
			l.notice = l.export(report.FormatMarkdown)
		case "r":
			return l.reload()
		}
	}
	return nil
}

func (l *logsView) updateSearch(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "enter":
		l.searching = false
		l.search.Blur()
		return nil
	case "esc":
		l.searching = false
		l.search.Blur()
		l.search.SetValue("")
		l.filter.Search = ""
		return nil
	}
	var cmd tea.Cmd
	l.search, cmd = l.search.Update(key)
	l.filter.Search = l.search.Value()
	l.cursor = 0
	return cmd
}

// export writes the filtered entries to the export directory and returns
// the message to show.
func (l *logsView) export(format report.Format) string {
	ex := report.NewExport(l.entries, l.filter, l.env.now())
	if len(ex.Entries) == 0 {
		return "Nothing to export."
	}

	path := filepath.Join(l.env.exportDir, report.ExportFileName(ex.GeneratedAt, format))
	if err := writeExport(path, format, ex); err != nil {
		l.env.logger.Error("failed to export logs", "path", path, "error", err)
		return "Export failed: " + err.Error()
	}
	return fmt.Sprintf("Exported %d entries to %s", len(ex.Entries), path)
}

func writeExport(path string, format report.Format, ex *report.Export) (err error) {
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	w, err := report.NewWriter(format, f)
	if err != nil {
		return err
	}
	_, err = w.Write(ex)
	return err
}

func (l *logsView) capturing() bool { return l.searching }

func (l *logsView) help() string {
	if l.searching {
		return "enter apply · esc clear"
	}
	return "f level · / search · e export text · m export markdown · r refresh"
}

func (l *logsView) render(width, height int) string {
	entries := l.visible()
	search := "-"
	if l.searching || l.filter.Search != "" {
		search = l.search.View()
	}
	lines := []string{
		fmt.Sprintf("Level: %s   Showing %d of %d", headerStyle.Render(l.filter.Label()), len(entries), len(l.entries)),
		"Search: " + search,
	}
	if l.notice != "" {
		lines = append(lines, mutedStyle.Render(truncate(l.notice, width)))
	}
	lines = append(lines, "")

	switch {
	case l.loading:
		lines = append(lines, mutedStyle.Render("Loading logs..."))
	case len(entries) == 0:
		lines = append(lines, mutedStyle.Render("No log entries."))
	default:
		widths := []int{16, 7, 10, max(width-37, 20)}
		lines = append(lines, mutedStyle.Render(row([]string{"Date", "Level", "Source", "Message"}, widths)))
		start, end := window(len(entries), l.cursor, height-len(lines)-1)
		for i := start; i < end; i++ {
			e := entries[i]
			line := pad(formatTime(e.CreatedAt), widths[0]) + " " +
				levelStyle(e.Level).Render(pad(string(e.Level), widths[1])) + " " +
				pad(orDash(e.Source), widths[2]) + " " +
				truncate(oneLine(e.Message), widths[3])
			if i == l.cursor {
				line = selectedStyle.Render("▸") + line
			} else {
				line = " " + line
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
