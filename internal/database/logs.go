package database

import (
	"context"
	"fmt"

	"github.com/nao1215/onionboard/internal/model"
)

// AddLog appends an entry to the system log.
func (s *Store) AddLog(ctx context.Context, level model.LogLevel, source, message string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO system_logs (level, source, message, created_at) VALUES (?, ?, ?, ?)`,
		string(level), source, message, formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("failed to add log: %w", err)
	}
	return nil
}

// RecentLogs returns at most limit entries, newest first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]model.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, level, source, message, created_at FROM system_logs
		ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	defer rows.Close()

	entries := []model.LogEntry{}
	for rows.Next() {
		var (
			e         model.LogEntry
			level     string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &level, &e.Source, &e.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		e.Level = model.LogLevel(level)
		e.CreatedAt = parseTimestamp(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LogStats counts the system log by level.
func (s *Store) LogStats(ctx context.Context) (model.LogStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT level, COUNT(*) FROM system_logs GROUP BY level`)
	if err != nil {
		return model.LogStats{}, fmt.Errorf("failed to count logs: %w", err)
	}
	defer rows.Close()

	var stats model.LogStats
	for rows.Next() {
		var (
			level string
			n     int64
		)
		if err := rows.Scan(&level, &n); err != nil {
			return model.LogStats{}, fmt.Errorf("failed to scan log count: %w", err)
		}
		stats.Total += n
		switch model.LogLevel(level) {
		case model.LogLevelInfo:
			stats.Info = n
		case model.LogLevelWarn:
			stats.Warning = n
		case model.LogLevelError:
			stats.Error = n
		case model.LogLevelSuccess:
			stats.Success = n
		}
	}
	return stats, rows.Err()
}
