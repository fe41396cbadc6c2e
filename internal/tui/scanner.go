package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/nao1215/onionboard/internal/model"
)

const kindScan = "scan"

// maxListedThreads bounds the threads shown under a scan result.
const maxListedThreads = 8

type scannerView struct {
	base
	input    textinput.Model
	scanning bool
	target   string
	result   *model.ScanResponse
	err      error
}

func newScannerView(b base) *scannerView {
	in := newInput("http://example.onion", 512)
	in.Width = 60
	in.Focus()
	return &scannerView{base: b, input: in}
}

func (s *scannerView) init() tea.Cmd { return nil }

func (s *scannerView) capturing() bool { return s.input.Focused() }

func (s *scannerView) help() string {
	if s.input.Focused() {
		return "enter scan · ctrl+r random UA · esc leave input"
	}
	return "enter edit URL · ctrl+r random UA"
}

func (s *scannerView) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case resultMsg:
		if msg.kind != kindScan || msg.gen != s.gen {
			return nil
		}
		s.scanning = false
		s.result, s.err = nil, msg.err
		if msg.err != nil {
			s.env.logger.Error("scan failed", "url", s.target, "error", msg.err)
			return nil
		}
		s.result, _ = msg.value.(*model.ScanResponse)
		return nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+r":
			if err := s.env.sess.SetRandomUA(!s.env.sess.RandomUA()); err != nil {
				s.env.logger.Error("failed to save preference", "error", err)
			}
			return nil
		case "esc":
			s.input.Blur()
			return nil
		case "enter":
			if !s.input.Focused() {
				return s.input.Focus()
			}
			return s.submit()
		}
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return cmd
	}
	return nil
}

func (s *scannerView) submit() tea.Cmd {
	target := strings.TrimSpace(s.input.Value())
	if target == "" || s.scanning {
		return nil
	}
	s.gen++
	s.scanning = true
	s.target = target
	s.result, s.err = nil, nil
	client, randomUA := s.env.client, s.env.sess.RandomUA()
	return s.request(s.gen, kindScan, func(ctx context.Context) (any, error) {
		return client.Scan(ctx, target, randomUA)
	})
}

func (s *scannerView) render(width, height int) string {
	lines := []string{
		headerStyle.Render("Target URL"),
		s.input.View(),
		"",
		"Random user agent: " + onOff(s.env.sess.RandomUA()),
		"",
	}

	switch {
	case s.scanning:
		lines = append(lines, mutedStyle.Render("Scanning "+s.target+" through Tor..."))
	case s.err != nil:
		lines = append(lines, errorStyle.Render(truncate("Scan failed: "+s.err.Error(), width)))
	case s.result != nil:
		lines = append(lines, s.renderResult(width)...)
	}
	return strings.Join(lines, "\n")
}

func (s *scannerView) renderResult(width int) []string {
	r := s.result
	var lines []string
	if r.Saved {
		lines = append(lines, successStyle.Render("Saved to history."))
	} else {
		lines = append(lines, warnStyle.Render("Not saved: "+orDash(r.Message)))
	}
	if r.Data == nil {
		return lines
	}

	d := r.Data
	lines = append(lines,
		"",
		"Title:      "+truncate(orDash(d.Title), width-12),
		"Forum:      "+onOff(d.IsForum),
		fmt.Sprintf("Content:    %d threads, %d posts", d.ThreadCount, d.PostCount),
		fmt.Sprintf("Duration:   %.2fs", r.Duration),
		"User-Agent: "+truncate(orDash(d.UserAgent), width-12),
	)
	if len(d.Threads) == 0 {
		return lines
	}

	lines = append(lines, "", headerStyle.Render("Threads"))
	widths := []int{max(width-40, 16), 16, 20}
	for i, t := range d.Threads {
		if i == maxListedThreads {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("... %d more", len(d.Threads)-i)))
			break
		}
		lines = append(lines, row([]string{t.Title, t.Author, t.Category}, widths))
	}
	return lines
}
