package manager

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nao1215/onionboard/internal/model"
)

// DefaultKeywordColor is given to new keywords.
const DefaultKeywordColor = "#3b82f6"

// KeywordSchema edits categorisation keywords.
func KeywordSchema() Schema[model.Keyword] {
	return Schema[model.Keyword]{
		Name: "keywords",
		Key:  func(k model.Keyword) int64 { return k.ID },
		Fields: []Field[model.Keyword]{
			{
				Name: "word", Label: "Word", Required: true,
				Get: func(k model.Keyword) string { return k.Word },
				Set: func(k *model.Keyword, v string) error { k.Word = strings.TrimSpace(v); return nil },
			},
			{
				Name: "category", Label: "Category", Required: true,
				Get: func(k model.Keyword) string { return k.Category },
				Set: func(k *model.Keyword, v string) error { k.Category = strings.TrimSpace(v); return nil },
			},
			{
				Name: "color", Label: "Color",
				Get: func(k model.Keyword) string { return k.Color },
				Set: func(k *model.Keyword, v string) error { k.Color = strings.TrimSpace(v); return nil },
			},
		},
		New: func() model.Keyword { return model.Keyword{Color: DefaultKeywordColor} },
	}
}

// UserAgentSchema edits the user agent rotation list.
func UserAgentSchema() Schema[model.UserAgent] {
	return Schema[model.UserAgent]{
		Name: "user-agents",
		Key:  func(u model.UserAgent) int64 { return u.ID },
		Fields: []Field[model.UserAgent]{
			{
				Name: "user_agent", Label: "User-Agent", Required: true,
				Get: func(u model.UserAgent) string { return u.UserAgent },
				Set: func(u *model.UserAgent, v string) error { u.UserAgent = strings.TrimSpace(v); return nil },
			},
		},
		New: func() model.UserAgent { return model.UserAgent{} },
	}
}

// WatchlistSchema edits watchlist entries.
func WatchlistSchema() Schema[model.WatchlistEntry] {
	return Schema[model.WatchlistEntry]{
		Name: "watchlist",
		Key:  func(w model.WatchlistEntry) int64 { return w.ID },
		Fields: []Field[model.WatchlistEntry]{
			{
				Name: "url", Label: "URL", Required: true,
				Get: func(w model.WatchlistEntry) string { return w.URL },
				Set: func(w *model.WatchlistEntry, v string) error { w.URL = strings.TrimSpace(v); return nil },
			},
			{
				Name: "interval_minutes", Label: "Interval (min)", Required: true,
				Get: func(w model.WatchlistEntry) string {
					if w.IntervalMinutes == 0 {
						return ""
					}
					return strconv.Itoa(w.IntervalMinutes)
				},
				Set: func(w *model.WatchlistEntry, v string) error {
					v = strings.TrimSpace(v)
					if v == "" {
						w.IntervalMinutes = 0
						return nil
					}
					n, err := strconv.Atoi(v)
					if err != nil || n <= 0 {
						return fmt.Errorf("%w: interval must be a positive number of minutes, got %q", ErrInvalidValue, v)
					}
					w.IntervalMinutes = n
					return nil
				},
			},
			{
				Name: "description", Label: "Description",
				Get: func(w model.WatchlistEntry) string { return w.Description },
				Set: func(w *model.WatchlistEntry, v string) error { w.Description = strings.TrimSpace(v); return nil },
			},
			{
				Name: "is_active", Label: "Active",
				Get: func(w model.WatchlistEntry) string { return strconv.FormatBool(w.IsActive) },
				Set: func(w *model.WatchlistEntry, v string) error {
					b, err := strconv.ParseBool(strings.TrimSpace(v))
					if err != nil {
						return fmt.Errorf("%w: active must be true or false, got %q", ErrInvalidValue, v)
					}
					w.IsActive = b
					return nil
				},
			},
		},
		New: func() model.WatchlistEntry {
			return model.WatchlistEntry{IntervalMinutes: model.DefaultWatchIntervalMinutes, IsActive: true}
		},
	}
}
