package main

import (
	"github.com/nao1215/onionboard/internal/tui"
	"github.com/spf13/cobra"
)

// NewDashboardCmd creates the dashboard command.
func NewDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Open the terminal dashboard",
		Long: `Dashboard opens the interactive terminal dashboard.

Without a stored token it starts at the login screen. After login the
last active tab is restored: dashboard, scanner, history, logs or settings.

Keys:
  tab / shift+tab   next / previous tab
  1-5               jump to a tab
  ctrl+l            log out
  q, ctrl+c         quit`,
		Args: cobra.NoArgs,
		RunE: runDashboardCmd,
	}

	cmd.Flags().String("export-dir", ".", "Directory for log exports made from the logs tab")

	return cmd
}

// runDashboardCmd executes the dashboard command.
func runDashboardCmd(cmd *cobra.Command, _ []string) error {
	env, err := newClientEnv(cmd)
	if err != nil {
		return err
	}

	exportDir, err := cmd.Flags().GetString("export-dir")
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	return tui.Run(ctx, env.client, env.sess,
		tui.WithLogger(env.logger),
		tui.WithExportDir(exportDir),
	)
}
