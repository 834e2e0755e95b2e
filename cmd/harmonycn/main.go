package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harmonyui/harmonycn/internal/config"
	"github.com/harmonyui/harmonycn/internal/errors"
	"github.com/harmonyui/harmonycn/internal/telemetry"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "harmonycn",
		Short: "Keep components in sync with a component registry",
		Long: `harmonycn compares the components installed in a project with the
registry they came from, and publishes local modifications back to the
registry repository as a pull request.

  • Diff installed components against the registry
  • Push changes as a pull request
  • Device authorization, no browser redirect
  • Registry update server with a live event feed`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		diffCmd(),
		pushCmd(),
		authCmd(),
		serveCmd(),
		versionCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger returns the stderr logger for a command.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose || os.Getenv(config.EnvDebug) != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// metrics returns the process metrics. The CLI never exposes them, but the
// same collectors back the serve command.
func metrics() *telemetry.Metrics {
	return telemetry.Default()
}

// loadConfig loads components.json from cwd or its closest ancestor.
func loadConfig(cwd string) (*config.Config, error) {
	if cwd == "" {
		return config.LoadFromWorkingDir()
	}
	if _, err := os.Stat(cwd); err != nil {
		return nil, errors.New(errors.CodeConfigMissing).
			WithDetail(fmt.Sprintf("The path %s does not exist", cwd))
	}
	return config.LoadFromDir(cwd)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
