package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"lawlink-quiz-service/internal/app"
	"lawlink-quiz-service/internal/config"
	"lawlink-quiz-service/internal/domain"
	"lawlink-quiz-service/internal/infra/document"
	"lawlink-quiz-service/internal/infra/memory"
	"lawlink-quiz-service/internal/infra/postgres"
	redisinfra "lawlink-quiz-service/internal/infra/redis"
	"lawlink-quiz-service/internal/infra/sqlite"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// backend is the set of stores selected by storage.driver.
type backend struct {
	loader  memory.QuizLoader
	scores  app.ScoreRepository
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (*backend, error) {
	b := &backend{}
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		b.loader = postgres.NewQuizLoader(pool)
		b.scores = postgres.NewScoreStore(pool)

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, sqliteDSN(cfg))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		b.closers = append(b.closers, func() { _ = db.Close() })
		store := sqlite.NewStore(db)
		b.loader = store
		b.scores = store

	default:
		quizzes, err := memoryQuizzes(cfg.Storage.SeedFile, log)
		if err != nil {
			return nil, err
		}
		b.loader = memory.NewStaticQuizLoader(quizzes)
		b.scores = memory.NewScoreStore()
	}
	log.Info("storage ready", slog.String("driver", cfg.Storage.Driver))
	return b, nil
}

// newService assembles the quiz service with optional Redis caching.
func newService(cfg config.Config, b *backend, log *slog.Logger) (*app.QuizService, func()) {
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	opts := []app.Option{
		app.WithLogger(log),
		app.WithRules(app.Rules{
			PassThreshold:         cfg.Scoring.PassThreshold,
			MinSecondsPerQuestion: cfg.Scoring.MinSecondsPerQuestion,
		}),
	}

	if cfg.Redis.Addr == "" {
		return app.NewQuizService(memory.NewQuizRepository(b.loader, quizTTL), b.scores, opts...), func() {}
	}

	client := newRedisClient(cfg)
	leaderboardTTL := config.TTLDuration(cfg.Leaderboard.TTL, 30*time.Second)
	opts = append(opts, app.WithLeaderboardCache(redisinfra.NewLeaderboardCache(client, leaderboardTTL)))
	log.Info("redis caching enabled", slog.String("addr", cfg.Redis.Addr))

	quizzes := redisinfra.NewQuizRepository(client, b.loader, quizTTL)
	return app.NewQuizService(quizzes, b.scores, opts...), func() { _ = client.Close() }
}

func newRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// memoryQuizzes reads the seed file if one is configured and present,
// otherwise falls back to the built-in sample.
func memoryQuizzes(seedFile string, log *slog.Logger) (map[string]domain.Quiz, error) {
	if seedFile == "" {
		return sampleQuizzes(), nil
	}
	docs, err := document.LoadSeedFile(seedFile)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn("seed file not found, using sample quiz", slog.String("path", seedFile))
		return sampleQuizzes(), nil
	}
	if err != nil {
		return nil, err
	}
	quizzes := make(map[string]domain.Quiz, len(docs))
	for _, doc := range docs {
		quizzes[doc.ID] = doc.ToQuiz(doc.ID)
	}
	return quizzes, nil
}

func sqliteDSN(cfg config.Config) string {
	if cfg.Storage.SQLitePath == "" {
		return ""
	}
	return "file:" + cfg.Storage.SQLitePath + "?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
}

// sampleQuizzes is the fallback catalogue for the memory driver.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:       "quiz-1",
			Title:    "Getting Started",
			Category: document.DefaultCategory,
			IsActive: true,
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Options: []domain.Option{
						{ID: "o1", Text: "3"},
						{ID: "o2", Text: "4"},
						{ID: "o3", Text: "5"},
					},
					CorrectAnswer: "o2",
					Explanation:   "2 + 2 = 4.",
					Points:        document.DefaultPoints,
					Difficulty:    domain.DifficultyEasy,
					Category:      document.DefaultCategory,
					References:    []string{},
				},
			},
		},
	}
}
