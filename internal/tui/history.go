package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nao1215/onionboard/internal/model"
)

const (
	kindHistory = "history"
	kindDetail  = "history-detail"
)

type historyView struct {
	base
	loading bool
	items   []model.HistoryItem
	cursor  int

	// The detail modal has its own generation so closing it orphans an
	// in-flight fetch without touching the list.
	modal         bool
	detailGen     uint64
	detailLoading bool
	detail        *model.ScanDetail
	detailErr     error
	scroll        int
}

func newHistoryView(b base) *historyView {
	return &historyView{base: b}
}

func (h *historyView) init() tea.Cmd {
	return h.reload()
}

func (h *historyView) reload() tea.Cmd {
	h.gen++
	h.loading = true
	client := h.env.client
	return h.request(h.gen, kindHistory, func(ctx context.Context) (any, error) {
		return client.History(ctx)
	})
}

func (h *historyView) open() tea.Cmd {
	if len(h.items) == 0 {
		return nil
	}
	id := h.items[h.cursor].ID
	h.modal = true
	h.detailGen++
	h.detailLoading = true
	h.detail, h.detailErr = nil, nil
	h.scroll = 0
	client := h.env.client
	return h.request(h.detailGen, kindDetail, func(ctx context.Context) (any, error) {
		return client.HistoryDetail(ctx, id)
	})
}

func (h *historyView) close() {
	h.modal = false
	h.detailGen++
	h.detail, h.detailErr = nil, nil
}

func (h *historyView) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case resultMsg:
		switch msg.kind {
		case kindHistory:
			if msg.gen != h.gen {
				return nil
			}
			h.loading = false
			h.items = nil
			if msg.err != nil {
				h.env.logger.Error("failed to load history", "error", msg.err)
			} else {
				h.items, _ = msg.value.([]model.HistoryItem)
			}
			h.cursor = clampCursor(h.cursor, len(h.items))
		case kindDetail:
			if msg.gen != h.detailGen || !h.modal {
				return nil
			}
			h.detailLoading = false
			h.detailErr = msg.err
			if msg.err != nil {
				h.env.logger.Error("failed to load scan detail", "error", msg.err)
				return nil
			}
			h.detail, _ = msg.value.(*model.ScanDetail)
		}
		return nil

	case tea.KeyMsg:
		if h.modal {
			switch msg.String() {
			case "esc", "q":
				h.close()
			case "j", "down":
				h.scroll++
			case "k", "up":
				h.scroll = max(h.scroll-1, 0)
			}
			return nil
		}
		switch msg.String() {
		case "j", "down":
			h.cursor = clampCursor(h.cursor+1, len(h.items))
		case "k", "up":
			h.cursor = clampCursor(h.cursor-1, len(h.items))
		case "enter":
			return h.open()
		case "r":
			return h.reload()
		}
	}
	return nil
}

func (h *historyView) capturing() bool { return h.modal }

func (h *historyView) help() string {
	if h.modal {
		return "j/k scroll · esc close"
	}
	return "j/k move · enter details · r refresh"
}

func (h *historyView) render(width, height int) string {
	if h.modal {
		return h.renderDetail(width, height)
	}
	if h.loading {
		return mutedStyle.Render("Loading history...")
	}
	if len(h.items) == 0 {
		return mutedStyle.Render("No scans stored yet.")
	}

	urlWidth := max(width-66, 16)
	widths := []int{2, 6, urlWidth, 9, 8, 8, 14, 16}
	lines := []string{mutedStyle.Render(row(
		[]string{"", "ID", "URL", "Source", "Threads", "Posts", "Category", "Last scan"}, widths))}

	start, end := window(len(h.items), h.cursor, height-1)
	for i := start; i < end; i++ {
		it := h.items[i]
		marker := " "
		if i == h.cursor {
			marker = "▸"
		}
		line := row([]string{
			marker, strconv.FormatInt(it.ID, 10), it.URL, it.Source,
			strconv.Itoa(it.TotalThreads), strconv.Itoa(it.TotalPosts),
			orDash(it.Category), formatTime(it.LastScan),
		}, widths)
		if i == h.cursor {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (h *historyView) renderDetail(width, height int) string {
	inner := max(width-8, 20)
	var lines []string
	switch {
	case h.detailLoading:
		lines = []string{mutedStyle.Render("Loading scan...")}
	case h.detailErr != nil:
		lines = []string{errorStyle.Render(truncate("Failed to load scan: "+h.detailErr.Error(), inner))}
	case h.detail != nil:
		lines = detailLines(h.detail, inner)
	}

	visible := max(height-6, 3)
	if len(lines) > visible {
		h.scroll = min(h.scroll, len(lines)-visible)
		lines = lines[h.scroll : h.scroll+visible]
	}
	return boxStyle.Width(width - 2).Render(strings.Join(lines, "\n"))
}

func detailLines(d *model.ScanDetail, width int) []string {
	lines := []string{
		titleStyle.Render(truncate(d.URL, width)),
		fmt.Sprintf("Scanned %s · %d threads · %d posts", formatTime(d.ScanDate), d.TotalThreads, d.TotalPosts),
	}
	for _, t := range d.Threads {
		lines = append(lines, "",
			headerStyle.Render(truncate(t.Title, width)),
			mutedStyle.Render(truncate(fmt.Sprintf("%s · %s · %s", orDash(t.Author), orDash(t.Date), orDash(t.Category)), width)),
		)
		if len(t.Posts) == 0 {
			lines = append(lines, truncate(oneLine(t.Content), width))
		}
		for _, p := range t.Posts {
			lines = append(lines, truncate(fmt.Sprintf("#%d %s: %s", p.Order, orDash(p.Author), oneLine(p.Content)), width))
		}
	}
	return lines
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
