package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nao1215/onionboard/internal/model"
)

const (
	kindStats    = "stats"
	kindLogStats = "log-stats"
)

type dashboardView struct {
	base
	pending int
	stats   model.GeneralStats
	logs    model.LogStats
}

func newDashboardView(b base) *dashboardView {
	return &dashboardView{base: b}
}

func (d *dashboardView) init() tea.Cmd {
	return d.refresh()
}

// refresh fetches stats and log counts in parallel.
func (d *dashboardView) refresh() tea.Cmd {
	d.gen++
	d.pending = 2
	client := d.env.client
	return tea.Batch(
		d.request(d.gen, kindStats, func(ctx context.Context) (any, error) {
			return client.GeneralStats(ctx)
		}),
		d.request(d.gen, kindLogStats, func(ctx context.Context) (any, error) {
			return client.LogStats(ctx)
		}),
	)
}

func (d *dashboardView) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case resultMsg:
		if msg.gen != d.gen {
			return nil
		}
		d.pending--
		switch msg.kind {
		case kindStats:
			d.stats = model.GeneralStats{}
			if msg.err != nil {
				d.env.logger.Error("failed to load stats", "error", msg.err)
			} else if s, ok := msg.value.(*model.GeneralStats); ok && s != nil {
				d.stats = *s
			}
		case kindLogStats:
			d.logs = model.LogStats{}
			if msg.err != nil {
				d.env.logger.Error("failed to load log stats", "error", msg.err)
			} else if s, ok := msg.value.(*model.LogStats); ok && s != nil {
				d.logs = *s
			}
		}
	case tea.KeyMsg:
		if msg.String() == "r" {
			return d.refresh()
		}
	}
	return nil
}

func (d *dashboardView) capturing() bool { return false }

func (d *dashboardView) help() string { return "r refresh" }

func (d *dashboardView) render(width, height int) string {
	if d.pending > 0 {
		return mutedStyle.Render("Loading dashboard...")
	}
	s := d.stats

	counters := lipgloss.JoinHorizontal(lipgloss.Top,
		counter("Sites", s.SiteCount),
		counter("Pages", s.PageCount),
		counter("Threads", s.ThreadCount),
		counter("Posts", s.PostCount),
	)

	status := []string{
		headerStyle.Render("System"),
		"Tor:       " + torLabel(s.SystemStatus.TorStatus),
		"Uptime:    " + orDash(s.SystemStatus.Uptime),
		"Network:   " + orDash(s.SystemStatus.Network),
		"Routines:  " + strconv.Itoa(s.SystemStatus.CPU),
		fmt.Sprintf("Memory:    %d MiB", s.SystemStatus.Memory),
		"",
		headerStyle.Render("Distribution"),
		fmt.Sprintf("Forums:    %d", s.Distribution.Forums),
		fmt.Sprintf("Other:     %d", s.Distribution.Sites),
		"",
		headerStyle.Render("Logs"),
		fmt.Sprintf("Total:     %d", d.logs.Total),
		infoStyle.Render(fmt.Sprintf("Info:      %d", d.logs.Info)),
		warnStyle.Render(fmt.Sprintf("Warning:   %d", d.logs.Warning)),
		errorStyle.Render(fmt.Sprintf("Error:     %d", d.logs.Error)),
		successStyle.Render(fmt.Sprintf("Success:   %d", d.logs.Success)),
	}
	left := lipgloss.NewStyle().Width(28).Render(strings.Join(status, "\n"))

	right := d.renderRecent(max(width-30, 20))
	return lipgloss.JoinVertical(lipgloss.Left,
		counters, "",
		lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right),
	)
}

func (d *dashboardView) renderRecent(width int) string {
	lines := []string{headerStyle.Render("Recent scans")}
	if len(d.stats.RecentSites) == 0 {
		return strings.Join(append(lines, mutedStyle.Render("No scans yet.")), "\n")
	}
	urlWidth := max(width-42, 12)
	widths := []int{urlWidth, 9, 12, 16}
	lines = append(lines, mutedStyle.Render(row([]string{"URL", "Source", "Category", "Date"}, widths)))
	for _, r := range d.stats.RecentSites {
		lines = append(lines, row([]string{r.URL, r.Source, orDash(r.Category), formatTime(r.ScanDate)}, widths))
	}

	if len(d.stats.ContentVolume) > 0 {
		lines = append(lines, "", headerStyle.Render("Content volume"))
		for _, c := range d.stats.ContentVolume {
			lines = append(lines, fmt.Sprintf("%-20s %5d threads %6d posts", c.Name, c.Threads, c.Posts))
		}
	}
	return strings.Join(lines, "\n")
}

func counter(label string, n int64) string {
	return boxStyle.Padding(0, 2).Render(headerStyle.Render(strconv.FormatInt(n, 10)) + "\n" + mutedStyle.Render(label))
}

func torLabel(status string) string {
	switch status {
	case model.TorStatusActive:
		return successStyle.Render(status)
	case "":
		return "-"
	default:
		return warnStyle.Render(status)
	}
}
