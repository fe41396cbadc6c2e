package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/onionboard/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/onionboard.yaml
var configTemplate embed.FS

// templatePath is the path of the template inside configTemplate.
const templatePath = "templates/onionboard.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new onionboard configuration file",
		Long: `Initialize creates a new .onionboard configuration file in the current directory.

The generated file includes:
- The backend API URL used by the operator commands
- Backend settings for "onionboard serve": listen address, Tor access,
  scan retries and the watchlist scheduler
- Comments describing every option and its environment override

Examples:
  # Create .onionboard in current directory
  onionboard init

  # Create config file at a specific path
  onionboard init -o myconfig.yaml

  # Force overwrite existing file
  onionboard init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may hold the token signing secret.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nBefore running \"onionboard serve\", set at least:")
	fmt.Fprintf(out, "  - a token signing secret (%s or server.jwt_secret)\n", config.EnvJWTSecret)
	fmt.Fprintln(out, "  - how the backend reaches Tor (server.tor_proxy or server.embedded_tor)")

	return nil
}
