package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".onionboard"

// Environment variables read by ApplyEnv and ApplyServerEnv.
const (
	EnvAPIURL        = "ONIONBOARD_API_URL"
	EnvJWTSecret     = "ONIONBOARD_JWT_SECRET"
	EnvTorProxy      = "ONIONBOARD_TOR_PROXY"
	EnvAdminPassword = "ONIONBOARD_ADMIN_PASSWORD"
	EnvDBDir         = "ONIONBOARD_DB_DIR"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .onionboard configuration file.
// Zero values leave the corresponding setting untouched.
type File struct {
	APIURL  string        `yaml:"api_url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
	Server  ServerFile    `yaml:"server,omitempty"`
}

// ServerFile is the server section of the configuration file.
type ServerFile struct {
	Listen               string        `yaml:"listen,omitempty"`
	DBDir                string        `yaml:"db_dir,omitempty"`
	JWTSecret            string        `yaml:"jwt_secret,omitempty"`
	TokenTTL             time.Duration `yaml:"token_ttl,omitempty"`
	AdminUsername        string        `yaml:"admin_username,omitempty"`
	AdminPassword        string        `yaml:"admin_password,omitempty"`
	TorProxy             string        `yaml:"tor_proxy,omitempty"`
	EmbeddedTor          *bool         `yaml:"embedded_tor,omitempty"`
	ScanTimeout          time.Duration `yaml:"scan_timeout,omitempty"`
	ScanRetries          int           `yaml:"scan_retries,omitempty"`
	UserAgent            string        `yaml:"user_agent,omitempty"`
	Watchlist            *bool         `yaml:"watchlist,omitempty"`
	WatchlistConcurrency int           `yaml:"watchlist_concurrency,omitempty"`
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .onionboard in the current directory
// 3. Look for .onionboard in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 2)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Apply copies the client settings present in the file onto cfg.
func (f *File) Apply(cfg *Config) {
	if f.APIURL != "" {
		cfg.APIURL = f.APIURL
	}
	if f.Timeout > 0 {
		cfg.Timeout = f.Timeout
	}
}

// ApplyServer copies the server settings present in the file onto cfg.
func (f *File) ApplyServer(cfg *ServerConfig) {
	s := f.Server
	if s.Listen != "" {
		cfg.ListenAddress = s.Listen
	}
	if s.DBDir != "" {
		cfg.DBDir = s.DBDir
	}
	if s.JWTSecret != "" {
		cfg.JWTSecret = s.JWTSecret
	}
	if s.TokenTTL > 0 {
		cfg.TokenTTL = s.TokenTTL
	}
	if s.AdminUsername != "" {
		cfg.AdminUsername = s.AdminUsername
	}
	if s.AdminPassword != "" {
		cfg.AdminPassword = s.AdminPassword
	}
	if s.TorProxy != "" {
		cfg.TorProxyAddress = s.TorProxy
	}
	if s.EmbeddedTor != nil {
		cfg.UseEmbeddedTor = *s.EmbeddedTor
	}
	if s.ScanTimeout > 0 {
		cfg.ScanTimeout = s.ScanTimeout
	}
	if s.ScanRetries > 0 {
		cfg.ScanRetries = s.ScanRetries
	}
	if s.UserAgent != "" {
		cfg.UserAgent = s.UserAgent
	}
	if s.Watchlist != nil {
		cfg.WatchlistEnabled = *s.Watchlist
	}
	if s.WatchlistConcurrency > 0 {
		cfg.WatchlistConcurrency = s.WatchlistConcurrency
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides client settings from the environment.
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	if v, ok := lookupNonEmpty(lookup, EnvAPIURL); ok {
		cfg.APIURL = v
	}
}

// ApplyServerEnv overrides server settings from the environment.
func ApplyServerEnv(cfg *ServerConfig, lookup LookupFunc) {
	if v, ok := lookupNonEmpty(lookup, EnvJWTSecret); ok {
		cfg.JWTSecret = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvTorProxy); ok {
		// Accept the socks5:// form some Tor setups document.
		cfg.TorProxyAddress = strings.TrimPrefix(v, "socks5://")
	}
	if v, ok := lookupNonEmpty(lookup, EnvAdminPassword); ok {
		cfg.AdminPassword = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvDBDir); ok {
		cfg.DBDir = v
	}
}

func lookupNonEmpty(lookup LookupFunc, key string) (string, bool) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
