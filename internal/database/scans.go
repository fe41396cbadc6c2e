package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nao1215/onionboard/internal/model"
)

// Limits of the dashboard aggregates.
const (
	recentScanLimit    = 7
	contentVolumeLimit = 10
	maxVolumeNameLen   = 20
)

// SaveScan stores a forum scan in one transaction: the site is upserted
// and marked as a forum, then one stats row, its threads and their posts
// are inserted. It returns the id of the new stats row.
func (s *Store) SaveScan(ctx context.Context, result *model.ScanResult, source string, scannedAt time.Time) (int64, error) {
	if result == nil {
		return 0, errors.New("nil scan result")
	}
	if source == "" {
		source = model.SourceManual
	}
	at := formatTime(scannedAt)

	var statsID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var siteID int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO sites (url, is_forum, last_scan, created_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(url) DO UPDATE SET is_forum = excluded.is_forum, last_scan = excluded.last_scan
			RETURNING id`,
			result.URL, result.IsForum, at, at).Scan(&siteID)
		if err != nil {
			return fmt.Errorf("failed to upsert site: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO stats (site_id, source, total_threads, total_posts, scan_date) VALUES (?, ?, ?, ?, ?)`,
			siteID, source, result.ThreadCount, result.PostCount, at)
		if err != nil {
			return fmt.Errorf("failed to insert stats: %w", err)
		}
		if statsID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get stats id: %w", err)
		}

		for _, t := range result.Threads {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO threads (site_id, stats_id, title, link, author, date, content, category)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				siteID, statsID, t.Title, t.Link, t.Author, t.Date, t.Content, t.Category)
			if err != nil {
				return fmt.Errorf("failed to insert thread: %w", err)
			}
			threadID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get thread id: %w", err)
			}
			for i, p := range t.Posts {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO posts (thread_id, author, content, date, post_order) VALUES (?, ?, ?, ?, ?)`,
					threadID, p.Author, p.Content, p.Date, i+1); err != nil {
					return fmt.Errorf("failed to insert post: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return statsID, nil
}

// History returns every stored scan, newest first.
func (s *Store) History(ctx context.Context) ([]model.HistoryItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT st.id, si.url, si.is_forum, st.source, st.scan_date, st.total_threads, st.total_posts,
			COALESCE((SELECT category FROM threads t WHERE t.stats_id = st.id ORDER BY t.id LIMIT 1), '')
		FROM stats st JOIN sites si ON si.id = st.site_id
		ORDER BY st.scan_date DESC, st.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	items := []model.HistoryItem{}
	for rows.Next() {
		var (
			h        model.HistoryItem
			scanDate string
		)
		if err := rows.Scan(&h.ID, &h.URL, &h.IsForum, &h.Source, &scanDate,
			&h.TotalThreads, &h.TotalPosts, &h.Category); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		h.LastScan = parseTimestamp(scanDate)
		items = append(items, h)
	}
	return items, rows.Err()
}

// ScanDetail returns the stored scan with the given stats id, including its
// threads and their posts in order.
func (s *Store) ScanDetail(ctx context.Context, id int64) (*model.ScanDetail, error) {
	var (
		d        model.ScanDetail
		scanDate string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT st.id, si.url, st.scan_date, st.total_threads, st.total_posts
		FROM stats st JOIN sites si ON si.id = st.site_id WHERE st.id = ?`, id).
		Scan(&d.ID, &d.URL, &scanDate, &d.TotalThreads, &d.TotalPosts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	d.ScanDate = parseTimestamp(scanDate)

	threads, err := s.threadsForStats(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Threads = threads
	return &d, nil
}

func (s *Store) threadsForStats(ctx context.Context, statsID int64) ([]model.Thread, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, site_id, stats_id, title, link, author, date, content, category
		FROM threads WHERE stats_id = ? ORDER BY id`, statsID)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	threads := []model.Thread{}
	for rows.Next() {
		var t model.Thread
		if err := rows.Scan(&t.ID, &t.SiteID, &t.StatsID, &t.Title, &t.Link,
			&t.Author, &t.Date, &t.Content, &t.Category); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		t.Posts = []model.Post{}
		threads = append(threads, t)
	}
	// The single pooled connection must be released before the post queries.
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range threads {
		posts, err := s.postsForThread(ctx, threads[i].ID)
		if err != nil {
			return nil, err
		}
		threads[i].Posts = posts
	}
	return threads, nil
}

func (s *Store) postsForThread(ctx context.Context, threadID int64) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread_id, author, content, date, post_order
		FROM posts WHERE thread_id = ? ORDER BY post_order, id`, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.ThreadID, &p.Author, &p.Content, &p.Date, &p.Order); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GeneralStats computes the dashboard aggregates. SystemStatus is left for
// the caller to fill.
func (s *Store) GeneralStats(ctx context.Context) (*model.GeneralStats, error) {
	stats := &model.GeneralStats{}

	err := s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM sites),
			(SELECT COUNT(*) FROM sites WHERE is_forum = 1),
			(SELECT COUNT(*) FROM stats),
			(SELECT COALESCE(SUM(total_threads), 0) FROM stats),
			(SELECT COALESCE(SUM(total_posts), 0) FROM stats)`).
		Scan(&stats.SiteCount, &stats.Distribution.Forums, &stats.PageCount,
			&stats.ThreadCount, &stats.PostCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count totals: %w", err)
	}
	stats.Distribution.Sites = stats.SiteCount - stats.Distribution.Forums

	if stats.RecentSites, err = s.recentScans(ctx); err != nil {
		return nil, err
	}
	if stats.ContentVolume, err = s.contentVolume(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) recentScans(ctx context.Context) ([]model.RecentScan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT st.id, si.url, si.is_forum, st.source, st.scan_date,
			COALESCE((SELECT category FROM threads t WHERE t.stats_id = st.id ORDER BY t.id LIMIT 1), '')
		FROM stats st JOIN sites si ON si.id = st.site_id
		ORDER BY st.scan_date DESC, st.id DESC LIMIT ?`, recentScanLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent scans: %w", err)
	}
	defer rows.Close()

	recent := []model.RecentScan{}
	for rows.Next() {
		var (
			r        model.RecentScan
			scanDate string
		)
		if err := rows.Scan(&r.ID, &r.URL, &r.IsForum, &r.Source, &scanDate, &r.Category); err != nil {
			return nil, fmt.Errorf("failed to scan recent scan: %w", err)
		}
		r.ScanDate = parseTimestamp(scanDate)
		recent = append(recent, r)
	}
	return recent, rows.Err()
}

// contentVolume returns the latest scans' volume, oldest first.
func (s *Store) contentVolume(ctx context.Context) ([]model.ContentStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT si.url, st.total_threads, st.total_posts
		FROM stats st JOIN sites si ON si.id = st.site_id
		ORDER BY st.scan_date DESC, st.id DESC LIMIT ?`, contentVolumeLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list content volume: %w", err)
	}
	defer rows.Close()

	volume := []model.ContentStat{}
	for rows.Next() {
		var c model.ContentStat
		if err := rows.Scan(&c.Name, &c.Threads, &c.Posts); err != nil {
			return nil, fmt.Errorf("failed to scan content volume: %w", err)
		}
		c.Name = ShortenName(c.Name)
		volume = append(volume, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(volume)
	return volume, nil
}

// ShortenName abbreviates names longer than 20 bytes to their first and
// last eight bytes joined by "...".
func ShortenName(name string) string {
	if len(name) <= maxVolumeNameLen {
		return name
	}
	return name[:8] + "..." + name[len(name)-8:]
}

// Reset clears the selected table groups in one transaction.
func (s *Store) Reset(ctx context.Context, req model.ResetRequest) error {
	var tables []string
	if req.History {
		tables = append(tables, "posts", "threads", "stats", "sites")
	}
	if req.Logs {
		tables = append(tables, "system_logs")
	}
	if req.Settings {
		tables = append(tables, "keywords", "user_agents", "watchlist")
	}
	if len(tables) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}
