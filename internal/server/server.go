package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nao1215/onionboard/internal/config"
	"github.com/nao1215/onionboard/internal/database"
	"github.com/nao1215/onionboard/internal/model"
	"github.com/nao1215/onionboard/internal/scraper"
	"github.com/nao1215/onionboard/internal/tor"
)

const (
	// requestTimeout covers a scan with all of its retries.
	requestTimeout = 3 * time.Minute

	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 10 * time.Second

	// recentLogLimit is the number of entries served by GET /logs.
	recentLogLimit = 20
)

// Server is the REST backend.
type Server struct {
	cfg      *config.ServerConfig
	store    *database.Store
	scanners scraper.Factory
	resolver *tor.Resolver
	auth     *Authenticator
	metrics  *metrics
	logger   *slog.Logger
	now      func() time.Time
	started  time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the process logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithScannerFactory replaces how scanners are built for POST /scan.
func WithScannerFactory(f scraper.Factory) Option {
	return func(s *Server) {
		s.scanners = f
	}
}

// WithResolver sets the resolver used for scans and the Tor status.
func WithResolver(r *tor.Resolver) Option {
	return func(s *Server) {
		s.resolver = r
	}
}

// WithClock replaces the clock.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
		s.auth.now = now
	}
}

// New creates a Server backed by store.
func New(cfg *config.ServerConfig, store *database.Store, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		auth:    NewAuthenticator(cfg.JWTSecret, cfg.TokenTTL),
		metrics: newMetrics(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.scanners == nil && s.resolver != nil {
		s.scanners = scraper.TorFactory(s.resolver, ScannerOptions(cfg, s.logger)...)
	}
	s.started = s.now()
	return s
}

// ScannerOptions maps the backend configuration onto scanner options.
func ScannerOptions(cfg *config.ServerConfig, logger *slog.Logger) []scraper.Option {
	opts := []scraper.Option{
		scraper.WithMaxAttempts(cfg.ScanRetries),
		scraper.WithRetryDelay(cfg.RetryDelay),
		scraper.WithRequestTimeout(cfg.ScanTimeout),
		scraper.WithLogger(logger),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, scraper.WithUserAgent(cfg.UserAgent))
	}
	if cfg.MaxBodySize > 0 {
		opts = append(opts, scraper.WithMaxBodySize(cfg.MaxBodySize))
	}
	return opts
}

// Handler returns the HTTP handler with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)
	r.Use(cors)
	r.Use(middleware.Timeout(requestTimeout))

	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/stats/general", s.handleGeneralStats)
			r.Get("/logs", s.handleLogs)
			r.Get("/logs/stats", s.handleLogStats)
			r.Post("/scan", s.handleScan)
			r.Get("/history", s.handleHistory)
			r.Get("/history/{id}", s.handleHistoryDetail)

			r.Route("/settings", func(r chi.Router) {
				r.Get("/keywords", s.handleListKeywords)
				r.Post("/keywords", s.handleCreateKeyword)
				r.Put("/keywords/{id}", s.handleUpdateKeyword)
				r.Delete("/keywords/{id}", s.handleDeleteKeyword)

				r.Get("/user-agents", s.handleListUserAgents)
				r.Post("/user-agents", s.handleCreateUserAgent)
				r.Put("/user-agents/{id}", s.handleUpdateUserAgent)
				r.Delete("/user-agents/{id}", s.handleDeleteUserAgent)

				r.Get("/watchlist", s.handleListWatchlist)
				r.Post("/watchlist", s.handleCreateWatchlist)
				r.Put("/watchlist/toggle-all", s.handleToggleWatchlist)
				r.Put("/watchlist/{id}", s.handleUpdateWatchlist)
				r.Delete("/watchlist/{id}", s.handleDeleteWatchlist)
			})

			r.Post("/system/reset-db", s.handleResetDatabase)
			r.Delete("/system/reset-db", s.handleResetAll)
		})
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("backend listening", "address", s.cfg.ListenAddress)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// record writes an operator-facing entry to the system log. Failures are
// logged to the process log only.
func (s *Server) record(ctx context.Context, level model.LogLevel, source, message string) {
	if err := s.store.AddLog(context.WithoutCancel(ctx), level, source, message); err != nil {
		s.logger.Warn("failed to record system log", "source", source, "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
