package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/onionboard/internal/model"
)

// ErrNoEntries is returned when there is nothing to export.
var ErrNoEntries = errors.New("no log entries to export")

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown export format")

// timestampLayout formats dates in every export.
const timestampLayout = "2006-01-02 15:04:05"

// Export is one filtered log export.
type Export struct {
	Entries     []model.LogEntry
	Filter      LogFilter
	GeneratedAt time.Time
}

// NewExport filters entries and stamps the export with now.
func NewExport(entries []model.LogEntry, filter LogFilter, now time.Time) *Export {
	return &Export{
		Entries:     filter.Apply(entries),
		Filter:      filter,
		GeneratedAt: now,
	}
}

// Writer defines the interface for export output.
type Writer interface {
	// Write outputs the export. It returns ErrNoEntries and writes
	// nothing when the export is empty.
	Write(export *Export) (int, error)
}

// MultiWriter writes to multiple Writers. It stops on the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the export to all configured Writers.
func (m *MultiWriter) Write(export *Export) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(export)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Format selects an export writer.
type Format string

// Export formats.
const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat parses a format name. "md" and "txt" are accepted aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatJSON:
		return "json"
	default:
		return "txt"
	}
}

// NewWriter returns the writer for format.
func NewWriter(format Format, output io.Writer) (Writer, error) {
	switch format {
	case FormatText:
		return NewTextWriter(output), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// ExportFileName returns the default file name for an export made at t,
// for example onionboard_logs_2026-01-31.txt.
func ExportFileName(t time.Time, format Format) string {
	return fmt.Sprintf("onionboard_logs_%s.%s", t.Format("2006-01-02"), format.Extension())
}

// baseWriter provides common functionality for export writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
