package model

import "time"

// GeneralStats is the dashboard aggregate served by GET /stats/general.
type GeneralStats struct {
	SiteCount     int64         `json:"site_count"`
	PageCount     int64         `json:"page_count"`
	ThreadCount   int64         `json:"thread_count"`
	PostCount     int64         `json:"post_count"`
	RecentSites   []RecentScan  `json:"recent_sites"`
	ContentVolume []ContentStat `json:"content_volume"`
	Distribution  Distribution  `json:"distribution"`
	SystemStatus  SystemStatus  `json:"system_status"`
}

// RecentScan is one row of the recent scans list.
type RecentScan struct {
	ID       int64     `json:"id"`
	URL      string    `json:"url"`
	IsForum  bool      `json:"is_forum"`
	Source   string    `json:"source"`
	Category string    `json:"category"`
	ScanDate time.Time `json:"scan_date"`
}

// ContentStat is the thread and post volume of one scan.
type ContentStat struct {
	Name    string `json:"name"`
	Threads int    `json:"threads"`
	Posts   int    `json:"posts"`
}

// Distribution splits known sites into forums and everything else.
type Distribution struct {
	Forums int64 `json:"forums"`
	Sites  int64 `json:"sites"`
}

// SystemStatus reports backend health. CPU carries the goroutine count and
// Memory the allocated heap in MiB.
type SystemStatus struct {
	CPU       int    `json:"cpu"`
	Memory    uint64 `json:"memory"`
	Network   string `json:"network"`
	Uptime    string `json:"uptime"`
	TorStatus string `json:"tor_status"`
}

// Tor status values reported in SystemStatus.
const (
	TorStatusActive  = "ACTIVE"
	TorStatusPassive = "PASSIVE"
)
