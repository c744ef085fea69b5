package cli

import (
	"context"
	"fmt"
	"log/slog"

	"lawlink-quiz-service/internal/config"
	"lawlink-quiz-service/internal/infra/postgres"
	"lawlink-quiz-service/internal/infra/sqlite"

	"github.com/spf13/cobra"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations for the configured storage driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath)
		},
	}
}

func runMigrations(ctx context.Context, configPath string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		return runMigrationsWithConfig(ctx, cfg, log)
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, sqliteDSN(cfg))
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("sqlite schema ready", slog.String("path", cfg.Storage.SQLitePath))
		return nil
	default:
		return fmt.Errorf("storage driver %q has no schema to migrate", cfg.Storage.Driver)
	}
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	db := postgres.OpenBun(cfg.Postgres.URL)
	defer db.Close()

	group, err := postgres.Migrate(ctx, db)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Info("no new migrations")
		return nil
	}
	log.Info("migrations applied", slog.String("group", group.String()))
	return nil
}
