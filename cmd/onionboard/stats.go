package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/onionboard/internal/model"
	"github.com/spf13/cobra"
)

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show collection counters and backend status",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}

// runStatsCmd executes the stats command.
func runStatsCmd(cmd *cobra.Command, _ []string) error {
	env, err := newAuthedEnv(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	stats, err := env.client.GeneralStats(ctx)
	if err != nil {
		return apiError(err, "failed to load stats")
	}
	if jsonFlag(cmd) {
		return writeJSON(env.out, stats)
	}
	return printStats(env.out, stats)
}

// printStats writes the dashboard aggregate as text.
func printStats(w io.Writer, s *model.GeneralStats) error {
	fmt.Fprintf(w, "Sites:    %d\n", s.SiteCount)
	fmt.Fprintf(w, "Pages:    %d\n", s.PageCount)
	fmt.Fprintf(w, "Threads:  %d\n", s.ThreadCount)
	fmt.Fprintf(w, "Posts:    %d\n", s.PostCount)
	fmt.Fprintf(w, "Forums:   %d of %d sites\n", s.Distribution.Forums, s.Distribution.Forums+s.Distribution.Sites)
	fmt.Fprintln(w)

	sys := s.SystemStatus
	fmt.Fprintf(w, "Tor:        %s\n", sys.TorStatus)
	fmt.Fprintf(w, "Network:    %s\n", sys.Network)
	fmt.Fprintf(w, "Uptime:     %s\n", sys.Uptime)
	fmt.Fprintf(w, "Goroutines: %d\n", sys.CPU)
	fmt.Fprintf(w, "Memory:     %d MiB\n", sys.Memory)

	if len(s.RecentSites) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Recent scans:")
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tURL\tFORUM\tSOURCE\tCATEGORY\tDATE")
	for _, r := range s.RecentSites {
		fmt.Fprintf(tw, "%d\t%s\t%t\t%s\t%s\t%s\n",
			r.ID, r.URL, r.IsForum, r.Source, orDash(r.Category), r.ScanDate.Local().Format(timeLayout))
	}
	return tw.Flush()
}

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "List stored scans, or show one scan with its threads and posts",
		Long: `History lists every stored scan. With an id it prints that scan's
threads and their posts.

Examples:
  onionboard history
  onionboard history 12`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	var id int64
	if len(args) == 1 {
		var err error
		if id, err = strconv.ParseInt(args[0], 10, 64); err != nil || id <= 0 {
			return fmt.Errorf("invalid scan id %q", args[0])
		}
	}

	env, err := newAuthedEnv(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if id == 0 {
		items, err := env.client.History(ctx)
		if err != nil {
			return apiError(err, "failed to load history")
		}
		if jsonFlag(cmd) {
			return writeJSON(env.out, items)
		}
		return printHistory(env.out, items)
	}

	detail, err := env.client.HistoryDetail(ctx, id)
	if err != nil {
		return apiError(err, fmt.Sprintf("failed to load scan %d", id))
	}
	if jsonFlag(cmd) {
		return writeJSON(env.out, detail)
	}
	return printScanDetail(env.out, detail)
}

func printHistory(w io.Writer, items []model.HistoryItem) error {
	if len(items) == 0 {
		fmt.Fprintln(w, "No scans stored yet.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tURL\tSOURCE\tCATEGORY\tTHREADS\tPOSTS\tLAST SCAN")
	for _, h := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%s\n",
			h.ID, h.URL, h.Source, orDash(h.Category), h.TotalThreads, h.TotalPosts,
			h.LastScan.Local().Format(timeLayout))
	}
	return tw.Flush()
}

func printScanDetail(w io.Writer, d *model.ScanDetail) error {
	fmt.Fprintf(w, "Scan #%d of %s\n", d.ID, d.URL)
	fmt.Fprintf(w, "Date: %s  Threads: %d  Posts: %d\n",
		d.ScanDate.Local().Format(timeLayout), d.TotalThreads, d.TotalPosts)

	for _, t := range d.Threads {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "== %s [%s]\n", t.Title, t.Category)
		if t.Link != "" {
			fmt.Fprintf(w, "   %s\n", t.Link)
		}
		for _, p := range t.Posts {
			fmt.Fprintf(w, "   #%d %s: %s\n", p.Order, orDash(p.Author), p.Content)
		}
	}
	return nil
}
