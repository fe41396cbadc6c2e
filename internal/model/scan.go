package model

import "time"

// Scan sources recorded with every stored scan.
const (
	SourceManual    = "manual"
	SourceWatchlist = "watchlist"
)

// ScanRequest asks the backend to scan one address.
type ScanRequest struct {
	URL      string `json:"url"`
	RandomUA bool   `json:"random_ua"`
}

// ScanResult is what the scraper extracted from one page.
type ScanResult struct {
	URL          string       `json:"url"`
	IsForum      bool         `json:"is_forum"`
	Title        string       `json:"title"`
	ThreadCount  int          `json:"thread_count"`
	PostCount    int          `json:"post_count"`
	ErrorMessage string       `json:"error_message"`
	Threads      []ThreadData `json:"threads"`
	UserAgent    string       `json:"user_agent"`
}

// ThreadData is a thread as extracted, before it is stored.
type ThreadData struct {
	Title    string     `json:"title"`
	Link     string     `json:"link"`
	Author   string     `json:"author"`
	Date     string     `json:"date"`
	Content  string     `json:"content"`
	Category string     `json:"category"`
	Posts    []PostData `json:"posts"`
}

// PostData is a post as extracted, before it is stored.
type PostData struct {
	Author     string `json:"author"`
	Content    string `json:"content"`
	Date       string `json:"date"`
	LastEdited string `json:"last_edited,omitempty"`
}

// ScanResponse is returned by POST /scan. Saved is false when the target
// was reachable but not recognised as a forum.
type ScanResponse struct {
	Message  string      `json:"message"`
	Data     *ScanResult `json:"data,omitempty"`
	Saved    bool        `json:"saved"`
	Duration float64     `json:"duration"`
}

// HistoryItem summarises one stored scan.
type HistoryItem struct {
	ID           int64     `json:"id"`
	URL          string    `json:"url"`
	IsForum      bool      `json:"is_forum"`
	Source       string    `json:"source"`
	LastScan     time.Time `json:"last_scan"`
	TotalThreads int       `json:"total_threads"`
	TotalPosts   int       `json:"total_posts"`
	Category     string    `json:"category"`
}

// ScanDetail is one stored scan with its threads and posts.
type ScanDetail struct {
	ID           int64     `json:"id"`
	URL          string    `json:"url"`
	ScanDate     time.Time `json:"scan_date"`
	TotalThreads int       `json:"total_threads"`
	TotalPosts   int       `json:"total_posts"`
	Threads      []Thread  `json:"threads"`
}

// Thread is a stored thread.
type Thread struct {
	ID       int64  `json:"id"`
	SiteID   int64  `json:"site_id"`
	StatsID  int64  `json:"stats_id"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Author   string `json:"author"`
	Date     string `json:"date"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Posts    []Post `json:"posts"`
}

// Post is a stored post. Order is its 1-based position in the thread.
type Post struct {
	ID       int64  `json:"id"`
	ThreadID int64  `json:"thread_id"`
	Author   string `json:"author"`
	Content  string `json:"content"`
	Date     string `json:"date"`
	Order    int    `json:"order"`
}
