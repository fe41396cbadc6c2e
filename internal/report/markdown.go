package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/onionboard/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// maxMessageWidth bounds the message column of the entry table.
const maxMessageWidth = 80

// MarkdownWriter outputs log exports in Markdown format.
// This format is designed for attaching to tickets and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the export in Markdown format.
func (w *MarkdownWriter) Write(export *Export) (int, error) {
	if export == nil || len(export.Entries) == 0 {
		return 0, ErrNoEntries
	}

	md := markdown.NewMarkdown(w.output)
	counts := countLevels(export.Entries)

	w.writeHeader(md, export)
	w.writeSummary(md, counts, len(export.Entries))
	w.writeEntries(md, export.Entries)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and export properties.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, export *Export) {
	md.H1("Onionboard System Logs")
	md.PlainText("")

	search := strings.TrimSpace(export.Filter.Search)
	if search == "" {
		search = "-"
	} else {
		search = "`" + search + "`"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", export.GeneratedAt.Format(timestampLayout)},
			{"Filter", export.Filter.Label()},
			{"Search", search},
			{"Entries", strconv.Itoa(len(export.Entries))},
		},
	})
	md.PlainText("")
}

// writeSummary writes the per-level table, pie chart and alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, counts map[model.LogLevel]int, total int) {
	md.H2("Level Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(model.LogLevels)+1)
	for _, level := range model.LogLevels {
		rows = append(rows, []string{levelBadge(level), strconv.Itoa(counts[level])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(total) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Level", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, counts)
	w.writeAlert(md, counts)
}

// writePieChart writes a mermaid pie chart for the level distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[model.LogLevel]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Log Level Distribution"),
		piechart.WithShowData(true),
	)

	title := cases.Title(language.English)
	for _, level := range model.LogLevels {
		if n := counts[level]; n > 0 {
			chart.LabelAndIntValue(title.String(strings.ToLower(string(level))), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the worst level present.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, counts map[model.LogLevel]int) {
	switch {
	case counts[model.LogLevelError] > 0:
		md.Cautionf("%d error entr%s in this export.", counts[model.LogLevelError], plural(counts[model.LogLevelError]))
	case counts[model.LogLevelWarn] > 0:
		md.Warningf("%d warning entr%s in this export.", counts[model.LogLevelWarn], plural(counts[model.LogLevelWarn]))
	default:
		md.Tip("No warnings or errors in this export.")
	}
	md.PlainText("")
}

// writeEntries writes the entry table.
func (w *MarkdownWriter) writeEntries(md *markdown.Markdown, entries []model.LogEntry) {
	md.H2("Entries")
	md.PlainText("")

	rows := make([][]string, len(entries))
	for i, e := range entries {
		source := e.Source
		if source == "" {
			source = "-"
		}
		rows[i] = []string{
			e.CreatedAt.Format(timestampLayout),
			string(e.Level),
			source,
			truncateString(escapeCell(e.Message), maxMessageWidth),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Date", "Level", "Source", "Message"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the export footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Exported by [onionboard](https://github.com/nao1215/onionboard)*")
}

func countLevels(entries []model.LogEntry) map[model.LogLevel]int {
	counts := make(map[model.LogLevel]int, len(model.LogLevels))
	for _, e := range entries {
		counts[e.Level]++
	}
	return counts
}

func levelBadge(level model.LogLevel) string {
	switch level {
	case model.LogLevelError:
		return "🔴 ERROR"
	case model.LogLevelWarn:
		return "🟡 WARN"
	case model.LogLevelSuccess:
		return "🟢 SUCCESS"
	default:
		return "🔵 " + string(level)
	}
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

// escapeCell keeps a message on one table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
