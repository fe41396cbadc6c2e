package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/onionboard/internal/config"
	"github.com/nao1215/onionboard/internal/model"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 * 1024

// Client talks to the backend REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its transport is
// wrapped, not replaced.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger for request tracing at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the per-request timeout. Scans through Tor can take
// minutes, so the default is generous.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// New returns a client for the API rooted at baseURL, for example
// "http://localhost:8080/api".
func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, ErrNilTokenSource
	}
	if baseURL == "" {
		baseURL = config.DefaultAPIURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	c := &Client{
		baseURL: u,
		tokens:  tokens,
		timeout: config.DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	// Copy so a caller-supplied client is not mutated.
	var hc http.Client
	if c.httpClient != nil {
		hc = *c.httpClient
	}
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = &authTransport{base: base, tokens: tokens}
	if c.timeout > 0 {
		hc.Timeout = c.timeout
	}
	c.httpClient = &hc

	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Health checks that the backend is up. It needs no token.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	return c.do(ctx, http.MethodGet, "/health", nil, &out)
}

// Login exchanges credentials for a bearer token. The caller stores the
// token; the client does not.
func (c *Client) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	var out model.LoginResponse
	req := model.LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GeneralStats fetches the dashboard aggregate.
func (c *Client) GeneralStats(ctx context.Context) (*model.GeneralStats, error) {
	var out model.GeneralStats
	if err := c.do(ctx, http.MethodGet, "/stats/general", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logs fetches the most recent system log entries, newest first.
func (c *Client) Logs(ctx context.Context) ([]model.LogEntry, error) {
	var out []model.LogEntry
	if err := c.do(ctx, http.MethodGet, "/logs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LogStats fetches log counts by level.
func (c *Client) LogStats(ctx context.Context) (*model.LogStats, error) {
	var out model.LogStats
	if err := c.do(ctx, http.MethodGet, "/logs/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Scan asks the backend to scan target through Tor.
func (c *Client) Scan(ctx context.Context, target string, randomUA bool) (*model.ScanResponse, error) {
	var out model.ScanResponse
	req := model.ScanRequest{URL: target, RandomUA: randomUA}
	if err := c.do(ctx, http.MethodPost, "/scan", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History lists stored scans, newest first.
func (c *Client) History(ctx context.Context) ([]model.HistoryItem, error) {
	var out []model.HistoryItem
	if err := c.do(ctx, http.MethodGet, "/history", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// HistoryDetail fetches one stored scan with threads and posts.
func (c *Client) HistoryDetail(ctx context.Context, id int64) (*model.ScanDetail, error) {
	var out model.ScanDetail
	if err := c.do(ctx, http.MethodGet, "/history/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleWatchlist sets is_active on every watchlist entry.
func (c *Client) ToggleWatchlist(ctx context.Context, active bool) error {
	var out model.MessageResponse
	return c.do(ctx, http.MethodPut, "/settings/watchlist/toggle-all", model.ToggleRequest{IsActive: active}, &out)
}

// ResetDatabase clears the selected table groups.
func (c *Client) ResetDatabase(ctx context.Context, req model.ResetRequest) (*model.MessageResponse, error) {
	var out model.MessageResponse
	if err := c.do(ctx, http.MethodPost, "/system/reset-db", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetAll clears every table group.
func (c *Client) ResetAll(ctx context.Context) (*model.MessageResponse, error) {
	var out model.MessageResponse
	if err := c.do(ctx, http.MethodDelete, "/system/reset-db", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends one request. in is JSON-encoded when non-nil; a 2xx body is
// decoded into out when out is non-nil and the body is not empty.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	se := &StatusError{Code: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return se
	}

	var er model.ErrorResponse
	if json.Unmarshal(data, &er) == nil && er.Error != "" {
		se.Message = er.Error
		return se
	}
	se.Message = strings.TrimSpace(string(data))
	return se
}
