package model

import (
	"fmt"
	"strings"
	"time"
)

// LogLevel classifies a system log entry.
type LogLevel string

const (
	// LogLevelInfo marks routine progress such as a scan starting.
	LogLevelInfo LogLevel = "INFO"

	// LogLevelWarn marks a completed operation with an unwanted outcome,
	// for example a target that turned out not to be a forum.
	LogLevelWarn LogLevel = "WARN"

	// LogLevelError marks a failed operation.
	LogLevelError LogLevel = "ERROR"

	// LogLevelSuccess marks a completed scan whose results were stored.
	LogLevelSuccess LogLevel = "SUCCESS"
)

// LogLevels lists every level in display order.
var LogLevels = []LogLevel{LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelSuccess}

// String implements fmt.Stringer.
func (l LogLevel) String() string {
	return string(l)
}

// Valid reports whether l is one of the known levels.
func (l LogLevel) Valid() bool {
	for _, known := range LogLevels {
		if l == known {
			return true
		}
	}
	return false
}

// ParseLogLevel parses a level name case-insensitively. "WARNING" is
// accepted as an alias of WARN. The empty string and "ALL" return the
// empty level, which filters nothing.
func ParseLogLevel(s string) (LogLevel, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	switch upper {
	case "", "ALL":
		return "", nil
	case "WARNING":
		return LogLevelWarn, nil
	}
	level := LogLevel(upper)
	if !level.Valid() {
		return "", fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// LogEntry is one row of the backend's system log.
type LogEntry struct {
	ID        int64     `json:"id"`
	Level     LogLevel  `json:"level"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// LogStats holds log counts by level.
type LogStats struct {
	Total   int64 `json:"total"`
	Info    int64 `json:"info"`
	Warning int64 `json:"warning"`
	Error   int64 `json:"error"`
	Success int64 `json:"success"`
}

// Count returns the number of entries for the given level.
func (s LogStats) Count(level LogLevel) int64 {
	switch level {
	case LogLevelInfo:
		return s.Info
	case LogLevelWarn:
		return s.Warning
	case LogLevelError:
		return s.Error
	case LogLevelSuccess:
		return s.Success
	default:
		return s.Total
	}
}
