package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/nao1215/onionboard/internal/api"
	"github.com/nao1215/onionboard/internal/config"
	obslog "github.com/nao1215/onionboard/internal/log"
	"github.com/nao1215/onionboard/internal/report"
	"github.com/nao1215/onionboard/internal/session"
	"github.com/spf13/cobra"
)

// errNotLoggedIn is returned by commands that need a token when the session
// has none.
var errNotLoggedIn = errors.New(`not logged in (run "onionboard login" first)`)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// lookupString returns a string flag from the command or the root.
func lookupString(cmd *cobra.Command, name string) (value string, changed bool) {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Value.String(), f.Changed
	}
	if f := cmd.Root().PersistentFlags().Lookup(name); f != nil {
		return f.Value.String(), f.Changed
	}
	return "", false
}

// loadConfigFile finds and parses the configuration file.
// If the user explicitly named a file that does not exist, it is an error;
// otherwise a missing file yields nil.
func loadConfigFile(cmd *cobra.Command) (*config.File, error) {
	explicit, _ := lookupString(cmd, "config")
	path := config.FindConfigFile(explicit)
	if path == "" {
		if explicit != "" {
			return nil, fmt.Errorf("configuration file not found: %s", explicit)
		}
		return nil, nil
	}
	file, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return file, nil
}

// buildClientConfig resolves the client configuration.
// Precedence: flags > environment > config file > defaults.
func buildClientConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	file, err := loadConfigFile(cmd)
	if err != nil {
		return nil, err
	}
	if file != nil {
		file.Apply(cfg)
	}
	config.ApplyEnv(cfg, os.LookupEnv)

	if v, changed := lookupString(cmd, "api-url"); changed {
		cfg.APIURL = v
	}
	if v, _ := lookupString(cmd, "session-file"); v != "" {
		cfg.SessionFile = v
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// clientEnv is everything an operator command needs to talk to the backend.
type clientEnv struct {
	cfg    *config.Config
	logger *slog.Logger
	sess   *session.Session
	client *api.Client
	out    io.Writer
}

// newClientEnv loads configuration, the persisted session and an API client.
func newClientEnv(cmd *cobra.Command) (*clientEnv, error) {
	cfg, err := buildClientConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger := obslog.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)

	sess, err := session.Open(session.NewFileStore(cfg.SessionFile), session.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	client, err := api.New(cfg.APIURL, sess, api.WithLogger(logger), api.WithTimeout(cfg.Timeout))
	if err != nil {
		return nil, err
	}

	return &clientEnv{
		cfg:    cfg,
		logger: logger,
		sess:   sess,
		client: client,
		out:    cmd.OutOrStdout(),
	}, nil
}

// newAuthedEnv is newClientEnv for commands that need a stored token.
func newAuthedEnv(cmd *cobra.Command) (*clientEnv, error) {
	env, err := newClientEnv(cmd)
	if err != nil {
		return nil, err
	}
	if !env.sess.Authenticated() {
		return nil, errNotLoggedIn
	}
	return env, nil
}

// apiError turns an API failure into a message an operator can act on.
func apiError(err error, what string) error {
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return fmt.Errorf("%s: session expired or rejected (run \"onionboard login\" again): %w", what, err)
	case errors.Is(err, api.ErrNotFound):
		return fmt.Errorf("%s: not found: %w", what, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// commandContext returns the command context cancelled on SIGINT/SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// newTable returns a tab-aligned writer for list output.
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	_, err := report.NewJSONWriter(w, report.WithPrettyPrint()).WriteValue(v)
	return err
}

// jsonFlag reports whether --json was passed.
func jsonFlag(cmd *cobra.Command) bool {
	v, err := cmd.Flags().GetBool("json")
	return err == nil && v
}

// orDash returns "-" for an empty string.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatTimePtr formats an optional timestamp.
func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
