package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nao1215/onionboard/internal/config"
	"github.com/nao1215/onionboard/internal/database"
	obslog "github.com/nao1215/onionboard/internal/log"
	"github.com/nao1215/onionboard/internal/model"
	"github.com/nao1215/onionboard/internal/scheduler"
	"github.com/nao1215/onionboard/internal/scraper"
	"github.com/nao1215/onionboard/internal/server"
	"github.com/nao1215/onionboard/internal/tor"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the onionboard backend",
		Long: `Serve starts the REST backend used by the dashboard and the other
onionboard commands. It stores scan results in SQLite, scans targets over
Tor and re-scans the watchlist every minute.

A token signing secret is required. Pass it through the
ONIONBOARD_JWT_SECRET environment variable or server.jwt_secret in the
configuration file.

On first start an admin account is created. If no admin password is
configured, a random one is generated and printed once.

Examples:
  # Serve with a system Tor daemon on 127.0.0.1:9050
  ONIONBOARD_JWT_SECRET=... onionboard serve

  # Start a private Tor daemon instead
  onionboard serve --embedded-tor

  # Pin the Tor proxy and listen on another port
  onionboard serve --tor-proxy 127.0.0.1:9150 --listen :9000`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress, "HTTP listen address")
	cmd.Flags().String("db-dir", "", "SQLite database directory (default: XDG data directory)")
	cmd.Flags().StringP("tor-proxy", "e", "", "Tor SOCKS5 proxy address (e.g., 127.0.0.1:9050)")
	cmd.Flags().Bool("embedded-tor", false, "Start an embedded Tor daemon")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")
	cmd.Flags().Bool("no-watchlist", false, "Do not start the watchlist scheduler")
	cmd.Flags().Int("watchlist-concurrency", config.DefaultWatchlistConcurrency,
		"Number of watchlist entries scanned concurrently")
	cmd.Flags().Bool("json-logs", false, "Write the process log as JSON")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServerConfig(cmd)
	if err != nil {
		return err
	}

	logger := obslog.NewServerLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.JSONLogs)
	slog.SetDefault(logger)

	ctx, cancel := commandContext(cmd)
	defer cancel()

	return runServe(ctx, cfg, logger, cmd.OutOrStdout())
}

// buildServerConfig resolves the backend configuration.
// Precedence: flags > environment > config file > defaults.
func buildServerConfig(cmd *cobra.Command) (*config.ServerConfig, error) {
	cfg := config.NewServerConfig()

	file, err := loadConfigFile(cmd)
	if err != nil {
		return nil, err
	}
	if file != nil {
		file.ApplyServer(cfg)
	}
	config.ApplyServerEnv(cfg, os.LookupEnv)

	flags := cmd.Flags()
	if flags.Changed("listen") {
		if cfg.ListenAddress, err = flags.GetString("listen"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("tor-proxy") {
		if cfg.TorProxyAddress, err = flags.GetString("tor-proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("embedded-tor") {
		if cfg.UseEmbeddedTor, err = flags.GetBool("embedded-tor"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("tor-timeout") {
		if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("no-watchlist") {
		disabled, err := flags.GetBool("no-watchlist")
		if err != nil {
			return nil, err
		}
		cfg.WatchlistEnabled = !disabled
	}
	if flags.Changed("watchlist-concurrency") {
		if cfg.WatchlistConcurrency, err = flags.GetInt("watchlist-concurrency"); err != nil {
			return nil, err
		}
	}
	if cfg.JSONLogs, err = flags.GetBool("json-logs"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// runServe opens the store, wires Tor access and the scheduler, and serves
// until ctx is cancelled.
func runServe(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger, out io.Writer) error {
	store, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()
	logger.Info("database opened", "path", store.Path())

	generated, err := server.SeedAdmin(ctx, store, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}
	if generated != "" {
		// Printed, not logged, so the password never lands in log files.
		fmt.Fprintf(out, "Created account %q with password: %s\n", cfg.AdminUsername, generated)
		fmt.Fprintln(out, "This password is shown only once.")
	}

	resolverOpts := []tor.ResolverOption{
		tor.WithCandidates(cfg.TorProxyCandidates),
		tor.WithResolverLogger(logger),
	}
	if cfg.TorProxyAddress != "" {
		resolverOpts = append(resolverOpts, tor.WithConfiguredProxy(cfg.TorProxyAddress))
	}
	if cfg.UseEmbeddedTor {
		embedded, err := startEmbeddedTor(ctx, cfg, logger, out)
		if err != nil {
			return err
		}
		defer func() {
			logger.Info("stopping embedded Tor daemon...")
			if err := embedded.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}()
		resolverOpts = append(resolverOpts, tor.WithEmbedded(embedded))
	}
	resolver := tor.NewResolver(cfg.ScanTimeout, resolverOpts...)

	srv := server.New(cfg, store, server.WithLogger(logger), server.WithResolver(resolver))

	if cfg.WatchlistEnabled {
		factory := scraper.TorFactory(resolver, server.ScannerOptions(cfg, logger)...)
		sched := scheduler.New(store, factory,
			scheduler.WithConcurrency(cfg.WatchlistConcurrency),
			scheduler.WithLogger(logger),
		)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	if err := store.AddLog(ctx, model.LogLevelInfo, "SYSTEM", "Backend started"); err != nil {
		logger.Warn("failed to record startup", "error", err)
	}

	return srv.ListenAndServe(ctx)
}

// startEmbeddedTor starts the embedded Tor daemon and waits for bootstrap.
func startEmbeddedTor(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger, out io.Writer) (*tor.EmbeddedTor, error) {
	fmt.Fprintln(out, "Starting embedded Tor daemon...")
	fmt.Fprintf(out, "This may take a few minutes (timeout: %s).\n", cfg.TorStartupTimeout)

	embedded := tor.NewEmbeddedTor(tor.WithStartupTimeout(cfg.TorStartupTimeout))
	if err := embedded.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	logger.Info("embedded Tor daemon started",
		"socks", embedded.SocksAddr(),
		"control", embedded.ControlAddr(),
	)
	fmt.Fprintf(out, "Embedded Tor ready on %s\n", embedded.SocksAddr())
	return embedded, nil
}
