package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/onionboard/internal/model"
	"github.com/nao1215/onionboard/internal/report"
	"github.com/spf13/cobra"
)

// NewLogsCmd creates the logs command and its subcommands.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the backend's system log",
		Long: `Logs prints the latest system log entries recorded by the backend:
scans, watchlist runs, logins and resets.

Examples:
  # Latest entries
  onionboard logs

  # Only errors mentioning a host
  onionboard logs --level error --search exampleforum

  # Counts per level
  onionboard logs stats

  # Write the filtered entries to a Markdown file
  onionboard logs export --level warn --format markdown`,
		Args: cobra.NoArgs,
		RunE: runLogsCmd,
	}
	addFilterFlags(cmd)
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")

	cmd.AddCommand(newLogStatsCmd())
	cmd.AddCommand(newLogExportCmd())
	return cmd
}

// addFilterFlags registers --level and --search.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("level", "L", "", "Only entries of this level (info, warn, error, success)")
	cmd.Flags().StringP("search", "s", "", "Only entries whose message or source contains this text")
}

// filterFromFlags builds a LogFilter from --level and --search.
func filterFromFlags(cmd *cobra.Command) (report.LogFilter, error) {
	levelFlag, err := cmd.Flags().GetString("level")
	if err != nil {
		return report.LogFilter{}, err
	}
	search, err := cmd.Flags().GetString("search")
	if err != nil {
		return report.LogFilter{}, err
	}
	level, err := model.ParseLogLevel(levelFlag)
	if err != nil {
		return report.LogFilter{}, err
	}
	return report.LogFilter{Level: level, Search: search}, nil
}

// fetchLogs loads the latest entries and applies the command's filter.
func fetchLogs(cmd *cobra.Command) (*clientEnv, report.LogFilter, []model.LogEntry, error) {
	filter, err := filterFromFlags(cmd)
	if err != nil {
		return nil, filter, nil, err
	}
	env, err := newAuthedEnv(cmd)
	if err != nil {
		return nil, filter, nil, err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	entries, err := env.client.Logs(ctx)
	if err != nil {
		return nil, filter, nil, apiError(err, "failed to load logs")
	}
	return env, filter, filter.Apply(entries), nil
}

// runLogsCmd executes the logs command.
func runLogsCmd(cmd *cobra.Command, _ []string) error {
	env, filter, entries, err := fetchLogs(cmd)
	if err != nil {
		return err
	}
	if jsonFlag(cmd) {
		return writeJSON(env.out, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintf(env.out, "No log entries (filter: %s).\n", filter.Label())
		return nil
	}

	tw := newTable(env.out)
	fmt.Fprintln(tw, "DATE\tLEVEL\tSOURCE\tMESSAGE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(timeLayout), e.Level, orDash(e.Source), e.Message)
	}
	return tw.Flush()
}

func newLogStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show log entry counts per level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newAuthedEnv(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			stats, err := env.client.LogStats(ctx)
			if err != nil {
				return apiError(err, "failed to load log stats")
			}
			if jsonFlag(cmd) {
				return writeJSON(env.out, stats)
			}

			tw := newTable(env.out)
			fmt.Fprintln(tw, "LEVEL\tCOUNT")
			for _, level := range model.LogLevels {
				fmt.Fprintf(tw, "%s\t%d\n", level, stats.Count(level))
			}
			fmt.Fprintf(tw, "TOTAL\t%d\n", stats.Total)
			return tw.Flush()
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}

func newLogExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered log entries to a file",
		Long: `Export writes the latest log entries that pass --level and --search to
a file named onionboard_logs_YYYY-MM-DD with an extension matching the
format. Use -o to choose the path, or "-o -" for stdout.`,
		Args: cobra.NoArgs,
		RunE: runLogExportCmd,
	}
	addFilterFlags(cmd)
	cmd.Flags().StringP("format", "f", string(report.FormatText), "Export format: text, markdown or json")
	cmd.Flags().StringP("output", "o", "", "Output path (default: onionboard_logs_<date>.<ext>)")
	return cmd
}

// runLogExportCmd executes the logs export command.
func runLogExportCmd(cmd *cobra.Command, _ []string) error {
	formatFlag, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	env, filter, entries, err := fetchLogs(cmd)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("nothing to export (filter: %s): %w", filter.Label(), report.ErrNoEntries)
	}

	now := time.Now()
	export := report.NewExport(entries, filter, now)

	if output == "-" {
		return writeExport(env.out, format, export)
	}
	if output == "" {
		output = report.ExportFileName(now, format)
	}
	if dir := filepath.Dir(output); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := errors.Join(writeExport(f, format, export), f.Close()); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	fmt.Fprintf(env.out, "Exported %d entries to %s\n", len(entries), output)
	return nil
}

func writeExport(w io.Writer, format report.Format, export *report.Export) error {
	writer, err := report.NewWriter(format, w)
	if err != nil {
		return err
	}
	_, err = writer.Write(export)
	return err
}
