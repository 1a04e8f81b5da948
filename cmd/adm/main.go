// Package main provides the main entry point for the notification relay
// admin CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"notifyapp/cmd/adm/commands"
	"notifyapp/internal/config"
	"notifyapp/internal/observability"

	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *observability.Logger
)

func main() {
	ctx := context.Background()

	var err error
	cfg, err = config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Disable all OpenTelemetry features for the admin CLI to avoid
	// connection errors against a collector that may not be running
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	logger = observability.Fallback()

	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "Admin CLI for the notification relay service",
		Long:  `Administrative commands for the notification relay service: version information, database checks and transport tests.`,
	}

	rootCmd.AddCommand(commands.VersionCommand())
	rootCmd.AddCommand(commands.DatabaseCommands(cfg, logger))
	rootCmd.AddCommand(commands.MailCommands(cfg, logger))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
