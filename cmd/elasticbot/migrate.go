package main

import (
	"fmt"
	"log/slog"

	"github.com/kiranshivaraju/elasticbot/internal/config"
	"github.com/kiranshivaraju/elasticbot/internal/store"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			dir := cfg.Database.MigrationsDir
			if !statusOnly {
				if err := store.RunMigrations(cfg.Database.URL, dir); err != nil {
					return fmt.Errorf("run migrations: %w", err)
				}
			}
			version, dirty, err := store.MigrationVersion(cfg.Database.URL, dir)
			if err != nil {
				return fmt.Errorf("read migration version: %w", err)
			}
			slog.Info("database schema", "version", version, "dirty", dirty)
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "Only report the current schema version")
	return cmd
}
