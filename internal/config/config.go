package config

import (
	"net"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "onionboard"

	// DefaultAPIURL is where the operator client expects the backend.
	// Every endpoint path is resolved relative to this base.
	DefaultAPIURL = "http://localhost:8080/api"

	// DefaultRequestTimeout bounds one API call made by the client.
	// Scans go through Tor and retry, so this is larger than a typical
	// REST timeout.
	DefaultRequestTimeout = 2 * time.Minute

	// DefaultListenAddress is the backend listen address.
	DefaultListenAddress = ":8080"

	// DefaultTokenTTL is the lifetime of an issued bearer token.
	// There is no refresh; operators log in again after expiry.
	DefaultTokenTTL = 2 * time.Hour

	// DefaultAdminUsername is the account seeded into an empty database.
	DefaultAdminUsername = "admin"

	// DefaultScanTimeout bounds a single fetch of a target page.
	DefaultScanTimeout = 15 * time.Second

	// DefaultScanRetries is the number of fetch attempts per scan.
	DefaultScanRetries = 3

	// DefaultRetryDelay is the pause between fetch attempts.
	DefaultRetryDelay = 2 * time.Second

	// DefaultWatchlistConcurrency limits concurrent watchlist scans.
	// Each scan holds a Tor circuit, so keep this small.
	DefaultWatchlistConcurrency = 4

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultUserAgent is sent when no rotating user agent is selected.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// DefaultMaxBodySize limits the response body read from a target.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// MinJWTSecretLength is the shortest accepted signing secret.
	MinJWTSecretLength = 16
)

// DefaultTorProxyCandidates are probed in order when no proxy is configured:
// the system Tor daemon first, then Tor Browser.
var DefaultTorProxyCandidates = []string{"127.0.0.1:9050", "127.0.0.1:9150"}

// Config holds the operator client options shared by the CLI and the
// terminal dashboard.
type Config struct {
	// APIURL is the backend base URL including the /api prefix.
	APIURL string

	// Timeout bounds one API request.
	Timeout time.Duration

	// Verbose enables debug logging.
	Verbose bool

	// SessionFile is where the token, active tab and preference flags are
	// persisted between runs.
	SessionFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, .onionboard is searched in the current directory and then
	// in the home directory.
	ConfigFilePath string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		APIURL:      DefaultAPIURL,
		Timeout:     DefaultRequestTimeout,
		SessionFile: SessionFilePath(),
	}
}

// Validate checks the client configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidAPIURL
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.SessionFile == "" {
		return ErrNoSessionFile
	}
	return nil
}

// ServerConfig holds the backend options used by `onionboard serve`.
//
// Tor access is resolved in this order: TorProxyAddress when set, the
// embedded daemon when UseEmbeddedTor is set, otherwise the first reachable
// address in TorProxyCandidates at scan time.
type ServerConfig struct {
	// ListenAddress is the HTTP listen address.
	ListenAddress string

	// DBDir is the directory holding the SQLite database.
	DBDir string

	// JWTSecret signs bearer tokens. It must be at least MinJWTSecretLength bytes.
	JWTSecret string

	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration

	// AdminUsername and AdminPassword seed the first account. An empty
	// password makes serve generate one and print it once.
	AdminUsername string
	AdminPassword string

	// TorProxyAddress pins the SOCKS5 proxy in "host:port" form.
	TorProxyAddress string

	// TorProxyCandidates are probed when TorProxyAddress is empty.
	TorProxyCandidates []string

	// UseEmbeddedTor starts a private Tor daemon through tornago.
	UseEmbeddedTor bool

	// TorStartupTimeout bounds the embedded daemon bootstrap.
	TorStartupTimeout time.Duration

	// ScanTimeout bounds a single page fetch.
	ScanTimeout time.Duration

	// ScanRetries is the number of fetch attempts per scan.
	ScanRetries int

	// RetryDelay is the pause between fetch attempts.
	RetryDelay time.Duration

	// UserAgent is the fallback User-Agent header.
	UserAgent string

	// MaxBodySize limits the bytes read from a target.
	MaxBodySize int64

	// WatchlistEnabled starts the periodic watchlist scheduler.
	WatchlistEnabled bool

	// WatchlistConcurrency limits concurrent watchlist scans.
	WatchlistConcurrency int

	// Verbose enables debug logging.
	Verbose bool

	// JSONLogs switches the process log to JSON.
	JSONLogs bool
}

// NewServerConfig creates a ServerConfig with default values.
// JWTSecret is left empty; callers must supply one.
func NewServerConfig() *ServerConfig {
	candidates := make([]string, len(DefaultTorProxyCandidates))
	copy(candidates, DefaultTorProxyCandidates)

	return &ServerConfig{
		ListenAddress:        DefaultListenAddress,
		DBDir:                XDGDataDir(),
		TokenTTL:             DefaultTokenTTL,
		AdminUsername:        DefaultAdminUsername,
		TorProxyCandidates:   candidates,
		TorStartupTimeout:    DefaultTorStartupTimeout,
		ScanTimeout:          DefaultScanTimeout,
		ScanRetries:          DefaultScanRetries,
		RetryDelay:           DefaultRetryDelay,
		UserAgent:            DefaultUserAgent,
		MaxBodySize:          DefaultMaxBodySize,
		WatchlistEnabled:     true,
		WatchlistConcurrency: DefaultWatchlistConcurrency,
	}
}

// Validate checks the backend configuration and returns the first problem found.
func (c *ServerConfig) Validate() error {
	if _, _, err := net.SplitHostPort(c.ListenAddress); err != nil {
		return ErrInvalidListenAddress
	}
	if c.DBDir == "" {
		return ErrNoDBDir
	}
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if len(c.JWTSecret) < MinJWTSecretLength {
		return ErrWeakJWTSecret
	}
	if c.TokenTTL <= 0 {
		return ErrInvalidTokenTTL
	}
	if c.AdminUsername == "" {
		return ErrMissingAdminUsername
	}
	if c.TorProxyAddress != "" {
		if _, _, err := net.SplitHostPort(c.TorProxyAddress); err != nil {
			return ErrInvalidTorProxy
		}
	}
	if c.ScanTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.ScanRetries <= 0 {
		return ErrInvalidScanRetries
	}
	if c.RetryDelay < 0 {
		return ErrInvalidRetryDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.WatchlistConcurrency <= 0 {
		return ErrInvalidConcurrency
	}
	return nil
}

// XDGDataDir returns the XDG data directory for onionboard.
// On Linux: ~/.local/share/onionboard
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for onionboard.
// On Linux: ~/.config/onionboard
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGStateDir returns the XDG state directory for onionboard.
// On Linux: ~/.local/state/onionboard
func XDGStateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// SessionFilePath returns the default session file location.
func SessionFilePath() string {
	return filepath.Join(XDGStateDir(), "session.yaml")
}
