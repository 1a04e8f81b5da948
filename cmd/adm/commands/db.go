// Package commands provides CLI commands for the admin tool
package commands

import (
	"notifyapp/internal/config"
	"notifyapp/internal/database"
	"notifyapp/internal/observability"
	contextutils "notifyapp/internal/utils"

	"github.com/spf13/cobra"
)

// DatabaseCommands returns the database management commands
func DatabaseCommands(cfg *config.Config, logger *observability.Logger) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands for the notification relay service.

Available commands:
  ping      - Check database connectivity
  migrate   - Run pending database migrations`,
	}

	dbCmd.AddCommand(pingCmd(cfg, logger))
	dbCmd.AddCommand(migrateCmd(cfg, logger))

	return dbCmd
}

func pingCmd(cfg *config.Config, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check database connectivity",
		Long:  `Open a connection with the configured settings and ping the database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			manager := database.NewManager(logger)

			if err := manager.Ping(ctx, cfg.Database); err != nil {
				return contextutils.WrapError(err, "database ping failed")
			}

			logger.Info(ctx, "Database is reachable", map[string]interface{}{
				"max_open_conns": cfg.Database.MaxOpenConns,
			})
			return nil
		},
	}
}

func migrateCmd(cfg *config.Config, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager := database.NewManager(logger)

			if err := manager.RunMigrations(cfg.Database.URL); err != nil {
				return contextutils.WrapError(err, "migrations failed")
			}

			logger.Info(cmd.Context(), "Migrations complete")
			return nil
		},
	}
}
