package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/onionboard/internal/model"
	"github.com/nao1215/onionboard/internal/tor"
)

// Defaults of a new Scanner.
const (
	DefaultMaxAttempts    = 3
	DefaultRetryDelay     = 2 * time.Second
	DefaultRequestTimeout = 15 * time.Second
	DefaultMaxBodySize    = 10 * 1024 * 1024
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Scanner fetches and analyzes single pages.
type Scanner struct {
	client         *http.Client
	maxAttempts    int
	retryDelay     time.Duration
	requestTimeout time.Duration
	maxBodySize    int64
	userAgent      string
	pick           func(n int) int
	now            func() time.Time
	logger         *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithMaxAttempts sets how many times a transient failure is tried.
func WithMaxAttempts(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Scanner) {
		s.retryDelay = d
	}
}

// WithRequestTimeout sets the deadline of a single attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		s.requestTimeout = d
	}
}

// WithMaxBodySize limits how much of a response body is read.
func WithMaxBodySize(size int64) Option {
	return func(s *Scanner) {
		s.maxBodySize = size
	}
}

// WithUserAgent sets the User-Agent used when no rotation list is given.
func WithUserAgent(ua string) Option {
	return func(s *Scanner) {
		s.userAgent = ua
	}
}

// WithPicker replaces the random index function used to pick a user agent.
func WithPicker(pick func(n int) int) Option {
	return func(s *Scanner) {
		s.pick = pick
	}
}

// WithClock replaces the clock used to date undated posts.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// NewScanner creates a Scanner using client, which should already be
// routed through the Tor proxy.
func NewScanner(client *http.Client, opts ...Option) *Scanner {
	s := &Scanner{
		client:         client,
		maxAttempts:    DefaultMaxAttempts,
		retryDelay:     DefaultRetryDelay,
		requestTimeout: DefaultRequestTimeout,
		maxBodySize:    DefaultMaxBodySize,
		userAgent:      DefaultUserAgent,
		pick:           rand.IntN,
		now:            time.Now,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan fetches target and analyzes it. When userAgents is not empty one of
// them is chosen at random for every attempt. Transient failures are
// retried; fatal ones (see IsFatal) are returned at once.
func (s *Scanner) Scan(ctx context.Context, target string, keywords []model.Keyword, userAgents []string) (*model.ScanResult, error) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOnion, target)
	}
	if err := tor.CheckHost(u.Hostname()); err != nil {
		return nil, classify(err)
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			s.logger.Info("retrying scan", "attempt", attempt, "max", s.maxAttempts, "url", target)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.retryDelay):
			}
		} else {
			s.logger.Info("starting scan", "url", target)
		}

		result, err := s.scanOnce(ctx, target, keywords, userAgents)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if IsFatal(err) {
			s.logger.Warn("scan failed", "url", target, "error", err)
			return nil, err
		}
		s.logger.Warn("scan attempt failed", "url", target, "attempt", attempt, "error", err)
		lastErr = err
	}
	return nil, fmt.Errorf("%w: last error: %w", ErrMaxRetries, lastErr)
}

func (s *Scanner) scanOnce(ctx context.Context, target string, keywords []model.Keyword, userAgents []string) (*model.ScanResult, error) {
	ua := s.chooseUserAgent(userAgents)

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	doc, finalURL, err := s.fetch(ctx, target, ua)
	if err != nil {
		return nil, err
	}

	result := Analyze(doc, finalURL, keywords, s.now())
	result.URL = target
	result.UserAgent = ua
	return result, nil
}

func (s *Scanner) chooseUserAgent(userAgents []string) string {
	var candidates []string
	for _, ua := range userAgents {
		if strings.TrimSpace(ua) != "" {
			candidates = append(candidates, ua)
		}
	}
	if len(candidates) == 0 {
		return s.userAgent
	}
	return candidates[s.pick(len(candidates))]
}

// fetch performs one GET and parses the body. It returns the URL the
// document was served from after redirects.
func (s *Scanner) fetch(ctx context.Context, target, ua string) (*goquery.Document, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, "", classify(fmt.Errorf("failed to parse page: %w", err))
	}

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return doc, finalURL, nil
}

// resolveLink resolves href against base, returning base for links that
// do not point at a page.
func resolveLink(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") {
		return base
	}
	b, err := url.Parse(base)
	if err != nil {
		return base
	}
	ref, err := url.Parse(href)
	if err != nil {
		return base
	}
	return b.ResolveReference(ref).String()
}
