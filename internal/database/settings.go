package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/onionboard/internal/model"
)

// ListKeywords returns every keyword in insertion order.
func (s *Store) ListKeywords(ctx context.Context) ([]model.Keyword, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, word, category, color FROM keywords ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}
	defer rows.Close()

	keywords := []model.Keyword{}
	for rows.Next() {
		var k model.Keyword
		if err := rows.Scan(&k.ID, &k.Word, &k.Category, &k.Color); err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}
		keywords = append(keywords, k)
	}
	return keywords, rows.Err()
}

// CreateKeyword stores k and returns it with its new id.
func (s *Store) CreateKeyword(ctx context.Context, k model.Keyword) (model.Keyword, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO keywords (word, category, color, created_at) VALUES (?, ?, ?, ?)`,
		k.Word, k.Category, k.Color, formatTime(s.now()))
	if err != nil {
		return model.Keyword{}, fmt.Errorf("failed to create keyword: %w", err)
	}
	if k.ID, err = res.LastInsertId(); err != nil {
		return model.Keyword{}, fmt.Errorf("failed to get keyword id: %w", err)
	}
	return k, nil
}

// UpdateKeyword replaces the keyword with the given id.
func (s *Store) UpdateKeyword(ctx context.Context, id int64, k model.Keyword) (model.Keyword, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE keywords SET word = ?, category = ?, color = ? WHERE id = ?`,
		k.Word, k.Category, k.Color, id)
	if err != nil {
		return model.Keyword{}, fmt.Errorf("failed to update keyword: %w", err)
	}
	if err := affectedOrNotFound(res); err != nil {
		return model.Keyword{}, err
	}
	k.ID = id
	return k, nil
}

// DeleteKeyword removes the keyword with the given id.
func (s *Store) DeleteKeyword(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM keywords WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete keyword: %w", err)
	}
	return affectedOrNotFound(res)
}

// ListUserAgents returns every user agent in insertion order.
func (s *Store) ListUserAgents(ctx context.Context) ([]model.UserAgent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_agent FROM user_agents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user agents: %w", err)
	}
	defer rows.Close()

	agents := []model.UserAgent{}
	for rows.Next() {
		var ua model.UserAgent
		if err := rows.Scan(&ua.ID, &ua.UserAgent); err != nil {
			return nil, fmt.Errorf("failed to scan user agent: %w", err)
		}
		agents = append(agents, ua)
	}
	return agents, rows.Err()
}

// CreateUserAgent stores ua and returns it with its new id.
func (s *Store) CreateUserAgent(ctx context.Context, ua model.UserAgent) (model.UserAgent, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO user_agents (user_agent, created_at) VALUES (?, ?)`,
		ua.UserAgent, formatTime(s.now()))
	if err != nil {
		return model.UserAgent{}, fmt.Errorf("failed to create user agent: %w", err)
	}
	if ua.ID, err = res.LastInsertId(); err != nil {
		return model.UserAgent{}, fmt.Errorf("failed to get user agent id: %w", err)
	}
	return ua, nil
}

// UpdateUserAgent replaces the user agent with the given id.
func (s *Store) UpdateUserAgent(ctx context.Context, id int64, ua model.UserAgent) (model.UserAgent, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE user_agents SET user_agent = ? WHERE id = ?`, ua.UserAgent, id)
	if err != nil {
		return model.UserAgent{}, fmt.Errorf("failed to update user agent: %w", err)
	}
	if err := affectedOrNotFound(res); err != nil {
		return model.UserAgent{}, err
	}
	ua.ID = id
	return ua, nil
}

// DeleteUserAgent removes the user agent with the given id.
func (s *Store) DeleteUserAgent(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user agent: %w", err)
	}
	return affectedOrNotFound(res)
}

const watchlistColumns = `id, url, interval_minutes, description, last_checked, next_check, is_active`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWatchlistEntry(row rowScanner) (model.WatchlistEntry, error) {
	var (
		w                      model.WatchlistEntry
		lastChecked, nextCheck sql.NullString
	)
	if err := row.Scan(&w.ID, &w.URL, &w.IntervalMinutes, &w.Description,
		&lastChecked, &nextCheck, &w.IsActive); err != nil {
		return model.WatchlistEntry{}, err
	}
	w.LastChecked = scanNullTime(lastChecked)
	w.NextCheck = scanNullTime(nextCheck)
	return w, nil
}

func (s *Store) queryWatchlist(ctx context.Context, query string, args ...any) ([]model.WatchlistEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	entries := []model.WatchlistEntry{}
	for rows.Next() {
		w, err := scanWatchlistEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		entries = append(entries, w)
	}
	return entries, rows.Err()
}

// ListWatchlist returns every watchlist entry in insertion order.
func (s *Store) ListWatchlist(ctx context.Context) ([]model.WatchlistEntry, error) {
	return s.queryWatchlist(ctx, `SELECT `+watchlistColumns+` FROM watchlist ORDER BY id`)
}

// DueWatchlist returns the entries for which WatchlistEntry.Due reports
// true at now, in insertion order.
func (s *Store) DueWatchlist(ctx context.Context, now time.Time) ([]model.WatchlistEntry, error) {
	active, err := s.queryWatchlist(ctx,
		`SELECT `+watchlistColumns+` FROM watchlist WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	due := make([]model.WatchlistEntry, 0, len(active))
	for _, w := range active {
		if w.Due(now) {
			due = append(due, w)
		}
	}
	return due, nil
}

// GetWatchlistEntry returns the entry with the given id.
func (s *Store) GetWatchlistEntry(ctx context.Context, id int64) (model.WatchlistEntry, error) {
	w, err := scanWatchlistEntry(s.db.QueryRowContext(ctx,
		`SELECT `+watchlistColumns+` FROM watchlist WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.WatchlistEntry{}, ErrNotFound
	}
	if err != nil {
		return model.WatchlistEntry{}, fmt.Errorf("failed to get watchlist entry: %w", err)
	}
	return w, nil
}

// CreateWatchlistEntry stores w as given and returns it with its new id.
// Callers normalize the URL and schedule NextCheck.
func (s *Store) CreateWatchlistEntry(ctx context.Context, w model.WatchlistEntry) (model.WatchlistEntry, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO watchlist (url, interval_minutes, description, last_checked, next_check, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.URL, w.IntervalMinutes, w.Description, nullTime(w.LastChecked), nullTime(w.NextCheck),
		w.IsActive, formatTime(s.now()))
	if err != nil {
		return model.WatchlistEntry{}, fmt.Errorf("failed to create watchlist entry: %w", err)
	}
	if w.ID, err = res.LastInsertId(); err != nil {
		return model.WatchlistEntry{}, fmt.Errorf("failed to get watchlist id: %w", err)
	}
	return w, nil
}

// UpdateWatchlistEntry replaces the editable columns of the entry with the
// given id. LastChecked is left untouched.
func (s *Store) UpdateWatchlistEntry(ctx context.Context, id int64, w model.WatchlistEntry) (model.WatchlistEntry, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE watchlist SET url = ?, interval_minutes = ?, description = ?, next_check = ?, is_active = ?
		WHERE id = ?`,
		w.URL, w.IntervalMinutes, w.Description, nullTime(w.NextCheck), w.IsActive, id)
	if err != nil {
		return model.WatchlistEntry{}, fmt.Errorf("failed to update watchlist entry: %w", err)
	}
	if err := affectedOrNotFound(res); err != nil {
		return model.WatchlistEntry{}, err
	}
	return s.GetWatchlistEntry(ctx, id)
}

// DeleteWatchlistEntry removes the entry with the given id.
func (s *Store) DeleteWatchlistEntry(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete watchlist entry: %w", err)
	}
	return affectedOrNotFound(res)
}

// SetWatchlistActive sets is_active on every entry and returns the number
// of rows touched.
func (s *Store) SetWatchlistActive(ctx context.Context, active bool) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE watchlist SET is_active = ?`, active)
	if err != nil {
		return 0, fmt.Errorf("failed to toggle watchlist: %w", err)
	}
	return res.RowsAffected()
}

// MarkWatchlistChecked records a check of the entry at checked and
// schedules the next one.
func (s *Store) MarkWatchlistChecked(ctx context.Context, id int64, checked, next time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE watchlist SET last_checked = ?, next_check = ? WHERE id = ?`,
		formatTime(checked), formatTime(next), id)
	if err != nil {
		return fmt.Errorf("failed to mark watchlist entry: %w", err)
	}
	return affectedOrNotFound(res)
}
