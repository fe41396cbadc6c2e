package main

import (
	"testing"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "onionboard" {
			t.Errorf("expected use 'onionboard', got %q", cmd.Use)
		}
	})

	t.Run("has descriptions and version", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty descriptions")
		}
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has global flags", func(t *testing.T) {
		t.Parallel()
		verbose := cmd.PersistentFlags().Lookup("verbose")
		if verbose == nil {
			t.Fatal("expected verbose flag")
		}
		if verbose.Shorthand != "v" {
			t.Errorf("expected shorthand 'v', got %q", verbose.Shorthand)
		}
		for _, name := range []string{"config", "api-url", "session-file"} {
			if cmd.PersistentFlags().Lookup(name) == nil {
				t.Errorf("expected persistent flag %q", name)
			}
		}
		if got := cmd.PersistentFlags().Lookup("api-url").DefValue; got != "http://localhost:8080/api" {
			t.Errorf("expected default API URL, got %q", got)
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := []string{
			"serve", "dashboard", "login", "logout", "scan", "stats",
			"history", "logs", "settings", "reset", "init", "version",
		}
		have := make(map[string]bool)
		for _, sub := range cmd.Commands() {
			have[sub.Name()] = true
		}
		for _, name := range want {
			if !have[name] {
				t.Errorf("expected %s subcommand", name)
			}
		}
	})

	t.Run("settings has resource subcommands", func(t *testing.T) {
		t.Parallel()
		settings, _, err := cmd.Find([]string{"settings", "watchlist", "toggle-all"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if settings.Name() != "toggle-all" {
			t.Errorf("expected toggle-all, got %q", settings.Name())
		}
		for _, resource := range []string{"keywords", "user-agents", "watchlist"} {
			for _, op := range []string{"list", "add", "update", "delete"} {
				sub, _, err := cmd.Find([]string{"settings", resource, op})
				if err != nil || sub.Name() != op {
					t.Errorf("expected settings %s %s, got %v", resource, op, err)
				}
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage {
			t.Error("expected SilenceUsage to be true")
		}
		if !cmd.SilenceErrors {
			t.Error("expected SilenceErrors to be true")
		}
	})
}
