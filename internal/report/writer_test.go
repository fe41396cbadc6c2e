package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/onionboard/internal/model"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// createTestEntries returns one entry per level, newest first.
func createTestEntries() []model.LogEntry {
	return []model.LogEntry{
		{ID: 4, Level: model.LogLevelSuccess, Source: "SCANNER", Message: "Saved forum abc.onion", CreatedAt: testNow.Add(-1 * time.Minute)},
		{ID: 3, Level: model.LogLevelError, Source: "WATCHLIST", Message: "Connection refused", CreatedAt: testNow.Add(-2 * time.Minute)},
		{ID: 2, Level: model.LogLevelWarn, Source: "SCANNER", Message: "Not a forum: xyz.onion", CreatedAt: testNow.Add(-3 * time.Minute)},
		{ID: 1, Level: model.LogLevelInfo, Source: "AUTH", Message: "User admin logged in", CreatedAt: testNow.Add(-4 * time.Minute)},
	}
}

// TestLogFilter tests level and search filtering.
func TestLogFilter(t *testing.T) {
	t.Parallel()

	entries := createTestEntries()

	t.Run("zero filter keeps everything", func(t *testing.T) {
		t.Parallel()
		got := LogFilter{}.Apply(entries)
		if len(got) != len(entries) {
			t.Errorf("expected %d entries, got %d", len(entries), len(got))
		}
	})

	t.Run("level filter", func(t *testing.T) {
		t.Parallel()
		got := LogFilter{Level: model.LogLevelError}.Apply(entries)
		if len(got) != 1 || got[0].ID != 3 {
			t.Errorf("expected only entry 3, got %+v", got)
		}
	})

	t.Run("search matches source case-insensitively", func(t *testing.T) {
		t.Parallel()
		got := LogFilter{Search: "scanner"}.Apply(entries)
		if len(got) != 2 {
			t.Errorf("expected 2 entries, got %d", len(got))
		}
	})

	t.Run("search matches message", func(t *testing.T) {
		t.Parallel()
		got := LogFilter{Search: "REFUSED"}.Apply(entries)
		if len(got) != 1 || got[0].ID != 3 {
			t.Errorf("expected only entry 3, got %+v", got)
		}
	})

	t.Run("level and search combine", func(t *testing.T) {
		t.Parallel()
		got := LogFilter{Level: model.LogLevelInfo, Search: "scanner"}.Apply(entries)
		if len(got) != 0 {
			t.Errorf("expected no entries, got %+v", got)
		}
	})

	t.Run("label", func(t *testing.T) {
		t.Parallel()
		if l := (LogFilter{}).Label(); l != "ALL" {
			t.Errorf("expected 'ALL', got %q", l)
		}
		if l := (LogFilter{Level: model.LogLevelWarn}).Label(); l != "WARN" {
			t.Errorf("expected 'WARN', got %q", l)
		}
	})

	t.Run("level cycle wraps to ALL", func(t *testing.T) {
		t.Parallel()
		f := LogFilter{}
		var seen []string
		for range len(model.LogLevels) + 1 {
			f = f.NextLevel()
			seen = append(seen, f.Label())
		}
		want := "INFO,WARN,ERROR,SUCCESS,ALL"
		if got := strings.Join(seen, ","); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})
}

// TestTextWriter tests the plain-text export.
func TestTextWriter(t *testing.T) {
	t.Parallel()

	t.Run("header reflects the filter", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		export := NewExport(createTestEntries(), LogFilter{Level: model.LogLevelWarn}, testNow)

		if _, err := NewTextWriter(&buf).Write(export); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines := strings.Split(buf.String(), "\n")
		if lines[0] != "ONIONBOARD SYSTEM LOGS" {
			t.Errorf("expected title line, got %q", lines[0])
		}
		if lines[1] != "Generated: 2026-03-14 09:30:00" {
			t.Errorf("unexpected generated line %q", lines[1])
		}
		if lines[2] != "Filter: WARN" {
			t.Errorf("expected 'Filter: WARN', got %q", lines[2])
		}
		if lines[3] != strings.Repeat("-", 80) {
			t.Errorf("expected 80-dash rule, got %q", lines[3])
		}
		if lines[4] != "" {
			t.Errorf("expected blank line, got %q", lines[4])
		}
	})

	t.Run("N entries give N blocks", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		entries := createTestEntries()
		export := NewExport(entries, LogFilter{}, testNow)

		if _, err := NewTextWriter(&buf).Write(export); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rule := strings.Repeat("-", 50) + "\n"
		out := buf.String()
		body := out[strings.Index(out, "\n\n")+2:]
		if got := strings.Count(body, rule); got != len(entries) {
			t.Errorf("expected %d blocks, got %d", len(entries), got)
		}
		if !strings.Contains(out, "[2026-03-14 09:29:00] [SUCCESS] [SCANNER]\nSaved forum abc.onion\n") {
			t.Errorf("expected formatted block, got:\n%s", out)
		}
	})

	t.Run("search appears in header", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		export := NewExport(createTestEntries(), LogFilter{Search: "scanner"}, testNow)
		if _, err := NewTextWriter(&buf).Write(export); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Search: \"scanner\"\n") {
			t.Error("expected search line in header")
		}
	})

	t.Run("empty export writes nothing", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		export := NewExport(createTestEntries(), LogFilter{Search: "nothing matches"}, testNow)
		if _, err := NewTextWriter(&buf).Write(export); !errors.Is(err, ErrNoEntries) {
			t.Errorf("expected ErrNoEntries, got %v", err)
		}
		if buf.Len() != 0 {
			t.Errorf("expected no output, got %q", buf.String())
		}
	})
}

// TestMarkdownWriter tests the Markdown export.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes summary, chart and entries", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		export := NewExport(createTestEntries(), LogFilter{}, testNow)

		n, err := NewMarkdownWriter(&buf).Write(export)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n == 0 {
			t.Error("expected non-zero byte count")
		}
		out := buf.String()
		for _, want := range []string{
			"# Onionboard System Logs",
			"## Level Summary",
			"```mermaid",
			"Log Level Distribution",
			"## Entries",
			"Connection refused",
			"[!CAUTION]",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("tip when no warnings or errors", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		export := NewExport(createTestEntries(), LogFilter{Level: model.LogLevelInfo}, testNow)
		if _, err := NewMarkdownWriter(&buf).Write(export); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!TIP]") {
			t.Error("expected tip alert")
		}
	})

	t.Run("pipes in messages are escaped", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		entries := []model.LogEntry{{Level: model.LogLevelInfo, Source: "SYSTEM", Message: "a|b", CreatedAt: testNow}}
		if _, err := NewMarkdownWriter(&buf).Write(NewExport(entries, LogFilter{}, testNow)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), `a\|b`) {
			t.Error("expected escaped pipe")
		}
	})

	t.Run("empty export", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(&Export{}); !errors.Is(err, ErrNoEntries) {
			t.Errorf("expected ErrNoEntries, got %v", err)
		}
	})
}

// TestJSONWriter tests the JSON export.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	export := NewExport(createTestEntries(), LogFilter{Level: model.LogLevelError}, testNow)
	if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(export); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc JSONExport
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc.Filter != "ERROR" || doc.Count != 1 || len(doc.Entries) != 1 {
		t.Errorf("unexpected document %+v", doc)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("expected trailing newline")
	}
}

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	mw := NewMultiWriter(NewTextWriter(&a), NewJSONWriter(&b))
	n, err := mw.Write(NewExport(createTestEntries(), LogFilter{}, testNow))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != a.Len()+b.Len() {
		t.Errorf("expected %d bytes, got %d", a.Len()+b.Len(), n)
	}
}

// TestFormats tests format parsing and file names.
func TestFormats(t *testing.T) {
	t.Parallel()

	t.Run("parse aliases", func(t *testing.T) {
		t.Parallel()
		cases := map[string]Format{"": FormatText, "TXT": FormatText, "md": FormatMarkdown, "json": FormatJSON}
		for in, want := range cases {
			got, err := ParseFormat(in)
			if err != nil || got != want {
				t.Errorf("ParseFormat(%q): expected %q, got %q (%v)", in, want, got, err)
			}
		}
		if _, err := ParseFormat("pdf"); !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("expected ErrUnknownFormat, got %v", err)
		}
	})

	t.Run("export file name", func(t *testing.T) {
		t.Parallel()
		if got := ExportFileName(testNow, FormatText); got != "onionboard_logs_2026-03-14.txt" {
			t.Errorf("unexpected name %q", got)
		}
		if got := ExportFileName(testNow, FormatMarkdown); got != "onionboard_logs_2026-03-14.md" {
			t.Errorf("unexpected name %q", got)
		}
	})

	t.Run("NewWriter rejects unknown format", func(t *testing.T) {
		t.Parallel()
		if _, err := NewWriter(Format("pdf"), &bytes.Buffer{}); !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("expected ErrUnknownFormat, got %v", err)
		}
	})
}
