package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/onionboard/internal/model"
	"github.com/spf13/cobra"
)

var (
	// errNoResetGroup is returned when no table group was selected.
	errNoResetGroup = errors.New("select at least one of --history, --logs, --settings or --all")

	// errResetAborted is returned when the confirmation was not given.
	errResetAborted = errors.New("reset aborted")
)

// NewResetCmd creates the reset command.
func NewResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete stored data on the backend",
		Long: `Reset clears groups of backend tables in one transaction:

  --history   sites, scan stats, threads and posts
  --logs      the system log
  --settings  keywords, user agents and the watchlist

The operator account is never removed. Unless --yes is given, the command
asks for confirmation on stdin.

Examples:
  onionboard reset --history --logs
  onionboard reset --all --yes`,
		Args: cobra.NoArgs,
		RunE: runResetCmd,
	}

	cmd.Flags().Bool("history", false, "Clear scan history")
	cmd.Flags().Bool("logs", false, "Clear the system log")
	cmd.Flags().Bool("settings", false, "Clear keywords, user agents and the watchlist")
	cmd.Flags().Bool("all", false, "Clear every group")
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	return cmd
}

// resetRequestFromFlags builds the reset selection.
func resetRequestFromFlags(cmd *cobra.Command) (req model.ResetRequest, all bool, err error) {
	flags := cmd.Flags()
	if all, err = flags.GetBool("all"); err != nil {
		return req, false, err
	}
	if all {
		return model.ResetAll(), true, nil
	}
	if req.History, err = flags.GetBool("history"); err != nil {
		return req, false, err
	}
	if req.Logs, err = flags.GetBool("logs"); err != nil {
		return req, false, err
	}
	if req.Settings, err = flags.GetBool("settings"); err != nil {
		return req, false, err
	}
	if !req.Any() {
		return req, false, errNoResetGroup
	}
	return req, false, nil
}

// describeReset names the selected groups.
func describeReset(req model.ResetRequest) string {
	var groups []string
	if req.History {
		groups = append(groups, "history")
	}
	if req.Logs {
		groups = append(groups, "logs")
	}
	if req.Settings {
		groups = append(groups, "settings")
	}
	return strings.Join(groups, ", ")
}

// confirm asks a yes/no question and reads the answer from in.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// runResetCmd executes the reset command.
func runResetCmd(cmd *cobra.Command, _ []string) error {
	req, all, err := resetRequestFromFlags(cmd)
	if err != nil {
		return err
	}
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return err
	}

	env, err := newAuthedEnv(cmd)
	if err != nil {
		return err
	}

	if !yes {
		question := fmt.Sprintf("Permanently delete %s on %s?", describeReset(req), env.cfg.APIURL)
		if !confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), question) {
			return errResetAborted
		}
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	var resp *model.MessageResponse
	if all {
		resp, err = env.client.ResetAll(ctx)
	} else {
		resp, err = env.client.ResetDatabase(ctx, req)
	}
	if err != nil {
		return apiError(err, "reset failed")
	}

	fmt.Fprintln(env.out, resp.Message)
	return nil
}
