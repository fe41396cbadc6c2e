package main

import (
	"fmt"
	"io"
	"time"

	"github.com/nao1215/onionboard/internal/model"
	"github.com/spf13/cobra"
)

// timeLayout is used for every timestamp the CLI prints.
const timeLayout = "2006-01-02 15:04:05"

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [address]",
		Short: "Ask the backend to scan one address",
		Long: `Scan sends one address to the backend, which fetches it over Tor,
decides whether it is a forum and stores threads and posts when it is.

The address is normalized by the backend: "http://" is added when no
scheme is given and ".onion" when the host has no suffix.

Examples:
  # Scan a forum
  onionboard scan exampleforum.onion

  # Rotate through the configured user agents
  onionboard scan --random-ua exampleforum.onion

  # Print the raw response
  onionboard scan --json exampleforum.onion`,
		Args: cobra.ExactArgs(1),
		RunE: runScanCmd,
	}

	cmd.Flags().Bool("random-ua", false,
		"Pick a random configured user agent (default: the dashboard setting)")
	cmd.Flags().BoolP("json", "j", false, "Output the response as JSON")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	env, err := newAuthedEnv(cmd)
	if err != nil {
		return err
	}

	randomUA := env.sess.RandomUA()
	if cmd.Flags().Changed("random-ua") {
		if randomUA, err = cmd.Flags().GetBool("random-ua"); err != nil {
			return err
		}
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	fmt.Fprintf(cmd.ErrOrStderr(), "Scanning %s...\n", args[0])
	resp, err := env.client.Scan(ctx, args[0], randomUA)
	if err != nil {
		return apiError(err, "scan failed")
	}

	if jsonFlag(cmd) {
		return writeJSON(env.out, resp)
	}
	return printScan(env.out, resp)
}

// printScan writes a scan response as text.
func printScan(w io.Writer, resp *model.ScanResponse) error {
	fmt.Fprintln(w, resp.Message)
	elapsed := time.Duration(resp.Duration * float64(time.Second))
	fmt.Fprintf(w, "Scan completed in %s\n", elapsed.Round(time.Millisecond))

	d := resp.Data
	if d == nil {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "URL:        %s\n", d.URL)
	fmt.Fprintf(w, "Title:      %s\n", orDash(d.Title))
	fmt.Fprintf(w, "Forum:      %t\n", d.IsForum)
	fmt.Fprintf(w, "Saved:      %t\n", resp.Saved)
	fmt.Fprintf(w, "Threads:    %d\n", d.ThreadCount)
	fmt.Fprintf(w, "Posts:      %d\n", d.PostCount)
	fmt.Fprintf(w, "User-Agent: %s\n", orDash(d.UserAgent))

	if len(d.Threads) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw := newTable(w)
	fmt.Fprintln(tw, "TITLE\tAUTHOR\tCATEGORY\tPOSTS")
	for _, t := range d.Threads {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", t.Title, orDash(t.Author), t.Category, len(t.Posts))
	}
	return tw.Flush()
}
