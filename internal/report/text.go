package report

import (
	"fmt"
	"io"
	"strings"
)

var (
	headerRule = strings.Repeat("-", 80)
	entryRule  = strings.Repeat("-", 50)
)

// TextWriter writes the plain-text log export: a header naming the active
// filter, then exactly one block per entry.
type TextWriter struct {
	baseWriter
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer) *TextWriter {
	return &TextWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the export as plain text.
func (w *TextWriter) Write(export *Export) (int, error) {
	if export == nil || len(export.Entries) == 0 {
		return 0, ErrNoEntries
	}

	var sb strings.Builder
	sb.WriteString("ONIONBOARD SYSTEM LOGS\n")
	fmt.Fprintf(&sb, "Generated: %s\n", export.GeneratedAt.Format(timestampLayout))
	fmt.Fprintf(&sb, "Filter: %s\n", export.Filter.Label())
	if q := strings.TrimSpace(export.Filter.Search); q != "" {
		fmt.Fprintf(&sb, "Search: %q\n", q)
	}
	sb.WriteString(headerRule + "\n\n")

	for _, e := range export.Entries {
		fmt.Fprintf(&sb, "[%s] [%s] [%s]\n", e.CreatedAt.Format(timestampLayout), e.Level, e.Source)
		sb.WriteString(e.Message + "\n")
		sb.WriteString(entryRule + "\n")
	}

	return io.WriteString(w.output, sb.String())
}
