package main

import (
	"fmt"
	"os"

	"github.com/nao1215/onionboard/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for onionboard.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "onionboard",
		Short: "Scan, store and browse Tor forum content",
		Long: `onionboard scans forum sites on Tor hidden services, stores threads and
posts, and re-scans a watchlist of addresses on a schedule.

Run "onionboard serve" to start the backend, then use "onionboard dashboard"
for the terminal dashboard or the other subcommands for scripted access.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .onionboard in current or home directory)")
	cmd.PersistentFlags().String("api-url", config.DefaultAPIURL, "Backend API base URL")
	cmd.PersistentFlags().String("session-file", config.SessionFilePath(),
		"File holding the login token and dashboard preferences")

	// Backend
	cmd.AddCommand(NewServeCmd())

	// Operator client
	cmd.AddCommand(NewDashboardCmd())
	cmd.AddCommand(NewLoginCmd())
	cmd.AddCommand(NewLogoutCmd())
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewStatsCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewLogsCmd())
	cmd.AddCommand(NewSettingsCmd())
	cmd.AddCommand(NewResetCmd())

	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
