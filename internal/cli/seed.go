package cli

import (
	"context"
	"fmt"
	"log/slog"

	"lawlink-quiz-service/internal/config"
	"lawlink-quiz-service/internal/infra/document"
	"lawlink-quiz-service/internal/infra/postgres"
	redisinfra "lawlink-quiz-service/internal/infra/redis"
	"lawlink-quiz-service/internal/infra/sqlite"

	"github.com/spf13/cobra"
)

// NewSeedCmd loads quizzes from a YAML file into the configured store.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert quizzes from a YAML seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "seed file (defaults to storage.seed_file)")
	return cmd
}

func runSeed(ctx context.Context, configPath, file string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if file == "" {
		file = cfg.Storage.SeedFile
	}
	if file == "" {
		return fmt.Errorf("no seed file given")
	}

	docs, err := document.LoadSeedFile(file)
	if err != nil {
		return err
	}

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
		db := postgres.OpenBun(cfg.Postgres.URL)
		defer db.Close()
		err = postgres.SeedQuizzes(ctx, db, docs)
	case config.DriverSQLite:
		db, openErr := sqlite.Open(ctx, sqliteDSN(cfg))
		if openErr != nil {
			return openErr
		}
		defer db.Close()
		err = sqlite.NewStore(db).SeedQuizzes(ctx, docs)
	default:
		return fmt.Errorf("storage driver %q is not persistent; the memory driver reads storage.seed_file at start", cfg.Storage.Driver)
	}
	if err != nil {
		return err
	}

	log.Info("quizzes seeded", slog.String("file", file), slog.Int("count", len(docs)))
	return evictSeeded(ctx, cfg, docs, log)
}

// evictSeeded clears cached copies of reseeded quizzes when Redis caching
// is configured.
func evictSeeded(ctx context.Context, cfg config.Config, docs []document.QuizDocument, log *slog.Logger) error {
	if cfg.Redis.Addr == "" || len(docs) == 0 {
		return nil
	}
	client := newRedisClient(cfg)
	defer client.Close()

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	if err := redisinfra.NewQuizRepository(client, nil, 0).Evict(ctx, ids...); err != nil {
		return fmt.Errorf("evict cached quizzes: %w", err)
	}
	log.Info("cached quizzes evicted", slog.Int("count", len(ids)))
	return nil
}
