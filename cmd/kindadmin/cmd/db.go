package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/db/bunx"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/migrations"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Session database commands",
	Long: `Commands for managing the schema of the persistent session store.
They require KINDADMIN_DATABASE_URL (or --db-url).`,
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize migration tables",
	Long:  `Creates the migration tracking tables in the database. Run this once during initial setup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(ctx context.Context, migrator *migrate.Migrator) error {
			if err := migrator.Init(ctx); err != nil {
				return fmt.Errorf("failed to initialize migrator: %w", err)
			}
			logger.Info("Migration tables initialized")
			return nil
		})
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Applies all pending migrations, holding the migration lock while doing so.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(ctx context.Context, migrator *migrate.Migrator) error {
			if err := migrator.Init(ctx); err != nil {
				return fmt.Errorf("failed to initialize migrator: %w", err)
			}
			return locked(ctx, migrator, func() error {
				group, err := migrator.Migrate(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				if group.IsZero() {
					logger.Info("No new migrations to apply")
				} else {
					logger.WithField("group", group.ID).Infof("Applied %s", group)
				}
				return nil
			})
		})
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(ctx context.Context, migrator *migrate.Migrator) error {
			ms, err := migrator.MigrationsWithStatus(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			for _, m := range ms {
				status := "pending"
				if m.GroupID > 0 {
					status = fmt.Sprintf("applied (group %d)", m.GroupID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", m.Name, status)
			}
			return nil
		})
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback last migration group",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(ctx context.Context, migrator *migrate.Migrator) error {
			return locked(ctx, migrator, func() error {
				group, err := migrator.Rollback(ctx)
				if err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				if group.IsZero() {
					logger.Info("No migrations to rollback")
				} else {
					logger.WithField("group", group.ID).Infof("Rolled back %s", group)
				}
				return nil
			})
		})
	},
}

func withMigrator(fn func(ctx context.Context, migrator *migrate.Migrator) error) error {
	if cfg.DatabaseURL == "" {
		return errors.New("no database configured: set KINDADMIN_DATABASE_URL or --db-url")
	}
	db, err := bunx.NewDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer closeDB(db)

	return fn(context.Background(), migrate.NewMigrator(db, migrations.Migrations))
}

// locked runs fn while holding the migration lock.
func locked(ctx context.Context, migrator *migrate.Migrator, fn func() error) error {
	if err := migrator.Lock(ctx); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		if err := migrator.Unlock(ctx); err != nil {
			logger.WithError(err).Warn("failed to release migration lock")
		}
	}()
	return fn()
}

func closeDB(db *bun.DB) {
	if err := bunx.Close(db); err != nil {
		logger.WithError(err).Warn("failed to close database")
	}
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbRollbackCmd)
}
