package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// errEmptyPassword is returned when no password could be read.
var errEmptyPassword = errors.New("password must not be empty")

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the backend and store the token",
		Long: `Login exchanges credentials for a bearer token and stores it in the
session file, where the dashboard and the other commands pick it up.

Tokens expire after two hours by default; log in again when a command
reports that the session expired.

Examples:
  # Prompt for the password
  onionboard login --username admin

  # Read the password from a pipe
  printf '%s\n' "$PASSWORD" | onionboard login --username admin --password-stdin`,
		Args: cobra.NoArgs,
		RunE: runLoginCmd,
	}

	cmd.Flags().StringP("username", "u", "admin", "Account name")
	cmd.Flags().Bool("password-stdin", false, "Read the password from stdin without a prompt")

	return cmd
}

// runLoginCmd executes the login command.
func runLoginCmd(cmd *cobra.Command, _ []string) error {
	env, err := newClientEnv(cmd)
	if err != nil {
		return err
	}

	username, err := cmd.Flags().GetString("username")
	if err != nil {
		return err
	}
	fromStdin, err := cmd.Flags().GetBool("password-stdin")
	if err != nil {
		return err
	}

	if !fromStdin {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	}
	password, err := readPassword(cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	resp, err := env.client.Login(ctx, username, password)
	if err != nil {
		return apiError(err, "login failed")
	}
	if err := env.sess.SetToken(resp.Token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	fmt.Fprintf(env.out, "Logged in as %s.\n", resp.User)
	return nil
}

// readPassword reads one line from r.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errEmptyPassword
	}
	return password, nil
}

// NewLogoutCmd creates the logout command.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newClientEnv(cmd)
			if err != nil {
				return err
			}
			if err := env.sess.Logout(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			fmt.Fprintln(env.out, "Logged out.")
			return nil
		},
	}
}
