// Package main provides the entry point for the spontis CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abelbrown/spontis/internal/logging"
)

var (
	globalConfig   string
	globalLogLevel string
	globalNow      string
	globalTrace    bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := newRootCmd()
	return rootCmd.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "spontis",
		Short:         "Normalize scraped event listings into a balanced feed",
		Version:       logging.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&globalConfig, "config", "c", "", "Config file (default ~/.spontis/config.yaml)")
	flags.StringVar(&globalLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&globalNow, "now", "", "Run clock as RFC 3339 (default: current time)")
	flags.BoolVar(&globalTrace, "trace", false, "Record per-stage timings in the event log")

	rootCmd.AddCommand(
		newBuildCmd(),
		newViewsCmd(),
		newStatsCmd(),
		newSurpriseCmd(),
		newBrowseCmd(),
		newEventsCmd(),
	)
	return rootCmd
}
