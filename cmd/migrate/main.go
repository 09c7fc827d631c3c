package main

// Manage the analyses schema:
//   go run ./cmd/migrate            # apply pending migrations
//   go run ./cmd/migrate down       # revert the latest migration
//   go run ./cmd/migrate version    # print the applied version

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"boneai-backend/internal/shared/config"
	"boneai-backend/internal/shared/storage/db"
	"boneai-backend/internal/shared/telemetry"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply database migrations",
		SilenceUsage: true,
		RunE: withDB(func(ctx context.Context, cmd *cobra.Command, sqlDB *sql.DB, dialect db.Dialect) error {
			if err := db.RunMigrations(ctx, sqlDB, dialect); err != nil {
				return err
			}
			telemetry.Info("migrate.done", map[string]any{"dialect": string(dialect)})
			return nil
		}),
	}
	root.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migration",
		RunE: withDB(func(ctx context.Context, cmd *cobra.Command, sqlDB *sql.DB, dialect db.Dialect) error {
			if err := db.RollbackMigration(ctx, sqlDB, dialect); err != nil {
				return err
			}
			telemetry.Info("migrate.rolled_back", map[string]any{"dialect": string(dialect)})
			return nil
		}),
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: withDB(func(ctx context.Context, cmd *cobra.Command, sqlDB *sql.DB, dialect db.Dialect) error {
			v, err := db.MigrationVersion(ctx, sqlDB, dialect)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		}),
	})
	return root
}

type dbFunc func(ctx context.Context, cmd *cobra.Command, sqlDB *sql.DB, dialect db.Dialect) error

// withDB opens the configured database for the duration of fn.
func withDB(fn dbFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		dialect := db.ParseDialect(cfg.DatabaseDriver)

		sqlDB, err := db.Connect(ctx, dialect, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
		if err != nil {
			telemetry.Error("migrate.connect_failed", map[string]any{"error": err.Error(), "dialect": string(dialect)})
			return err
		}
		defer sqlDB.Close()

		if err := fn(ctx, cmd, sqlDB, dialect); err != nil {
			telemetry.Error("migrate.failed", map[string]any{"error": err.Error(), "dialect": string(dialect)})
			return err
		}
		return nil
	}
}
