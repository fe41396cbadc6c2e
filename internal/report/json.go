package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/onionboard/internal/model"
)

// JSONWriter outputs log exports in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONExport is the document written by JSONWriter.
type JSONExport struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Filter      string           `json:"filter"`
	Search      string           `json:"search,omitempty"`
	Count       int              `json:"count"`
	Entries     []model.LogEntry `json:"entries"`
}

// Write outputs the export as one JSON document.
func (w *JSONWriter) Write(export *Export) (int, error) {
	if export == nil || len(export.Entries) == 0 {
		return 0, ErrNoEntries
	}
	return w.WriteValue(JSONExport{
		GeneratedAt: export.GeneratedAt,
		Filter:      export.Filter.Label(),
		Search:      export.Filter.Search,
		Count:       len(export.Entries),
		Entries:     export.Entries,
	})
}

// WriteValue marshals any value with the writer's settings. The CLI uses it
// for --json output of stats and history.
func (w *JSONWriter) WriteValue(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
