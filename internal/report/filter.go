package report

import (
	"strings"

	"github.com/nao1215/onionboard/internal/model"
)

// AllLevelsLabel is shown when a filter accepts every level.
const AllLevelsLabel = "ALL"

// LogFilter selects log entries by level and free-text search.
// The zero value accepts everything.
type LogFilter struct {
	// Level keeps only entries of this level. Empty means all levels.
	Level model.LogLevel

	// Search keeps only entries whose message or source contains it,
	// ignoring case.
	Search string
}

// Match reports whether e passes the filter.
func (f LogFilter) Match(e model.LogEntry) bool {
	if f.Level != "" && e.Level != f.Level {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), q) ||
		strings.Contains(strings.ToLower(e.Source), q)
}

// Apply returns the entries that pass the filter, in input order.
func (f LogFilter) Apply(entries []model.LogEntry) []model.LogEntry {
	out := make([]model.LogEntry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Label returns the level name, or ALL.
func (f LogFilter) Label() string {
	if f.Level == "" {
		return AllLevelsLabel
	}
	return string(f.Level)
}

// NextLevel cycles ALL, INFO, WARN, ERROR, SUCCESS and back to ALL.
func (f LogFilter) NextLevel() LogFilter {
	if f.Level == "" {
		f.Level = model.LogLevels[0]
		return f
	}
	for i, l := range model.LogLevels {
		if l == f.Level {
			if i+1 < len(model.LogLevels) {
				f.Level = model.LogLevels[i+1]
			} else {
				f.Level = ""
			}
			return f
		}
	}
	f.Level = ""
	return f
}
