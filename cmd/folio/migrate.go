package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/logger"
	"github.com/Zachkp/folio/internal/storage"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Apply, roll back or inspect the embedded sqlite migrations.`,
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(db *sql.DB) error {
				return storage.Rollback(db, steps, logger.WithComponent("migrate"))
			})
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd.Context(), func(db *sql.DB) error {
					return storage.Migrate(db, logger.WithComponent("migrate"))
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd.Context(), func(db *sql.DB) error {
					version, dirty, err := storage.Version(db)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version: %d\ndirty: %t\n", version, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}

func withDB(ctx context.Context, fn func(db *sql.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger, false); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	db, err := storage.Open(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}
