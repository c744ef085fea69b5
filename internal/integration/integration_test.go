package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"lawlink-quiz-service/internal/app"
	"lawlink-quiz-service/internal/domain"
	"lawlink-quiz-service/internal/infra/document"
	"lawlink-quiz-service/internal/infra/postgres"
	infraredis "lawlink-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestSubmitAndRankEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuiz(t, ctx, pgURL, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	quizRepo := infraredis.NewQuizRepository(redisClient, postgres.NewQuizLoader(pool), 5*time.Minute)
	cache := infraredis.NewLeaderboardCache(redisClient, time.Minute)
	service := app.NewQuizService(quizRepo, postgres.NewScoreStore(pool), app.WithLeaderboardCache(cache))

	submit := func(user, q2 string) domain.QuizResult {
		t.Helper()
		result, err := service.Submit(ctx, domain.Submission{
			UserID:   user,
			QuizID:   "quiz-1",
			Duration: 20,
			Answers: []domain.SubmittedAnswer{
				{QuestionID: "q1", SelectedOptionID: "o2", TimeSpent: 8},
				{QuestionID: "q2", SelectedOptionID: q2, TimeSpent: 12},
			},
		})
		if err != nil {
			t.Fatalf("submit %s: %v", user, err)
		}
		return result
	}

	alice := submit("u1", "a")
	if alice.Score != 10 || alice.Percentage != 50 || alice.Passed {
		t.Fatalf("unexpected result for u1: %+v", alice)
	}

	board, err := service.Leaderboard(ctx, "quiz-1", 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 1 {
		t.Fatalf("expected 1 entry, got %+v", board)
	}
	if exists, _ := redisClient.Exists(ctx, "leaderboard:quiz-1").Result(); exists != 1 {
		t.Fatalf("expected leaderboard to be cached")
	}

	bob := submit("u2", `"b"`)
	if !bob.Passed || bob.Percentage != 100 {
		t.Fatalf("unexpected result for u2: %+v", bob)
	}
	if exists, _ := redisClient.Exists(ctx, "leaderboard:quiz-1").Result(); exists != 0 {
		t.Fatalf("expected submission to invalidate the cached leaderboard")
	}

	board, err = service.Leaderboard(ctx, "quiz-1", 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 2 || board[0].UserID != "u2" {
		t.Fatalf("expected u2 leading, got %+v", board)
	}

	history, err := service.History(ctx, "u2", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Score != 20 {
		t.Fatalf("unexpected history %+v", history)
	}

	stats, err := service.Stats(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalAttempts != 2 || stats.PassRate != 50 || stats.AverageScore != 75 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	list, err := service.ListQuizzes(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].TotalPoints != 20 {
		t.Fatalf("unexpected quiz list %+v", list)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuiz(t *testing.T, ctx context.Context, dsn string, quiz domain.Quiz) {
	t.Helper()
	db := postgres.OpenBun(dsn)
	defer db.Close()

	if _, err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := postgres.SeedQuizzes(ctx, db, []document.QuizDocument{document.FromQuiz(quiz)}); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:       "quiz-1",
		Title:    "Small Claims",
		Category: "civil",
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
				Points:        10,
				Difficulty:    domain.DifficultyEasy,
			},
			{
				ID:     "q2",
				Prompt: "Which track handles low-value claims?",
				Options: []domain.Option{
					{ID: "a", Text: "Multi-track"},
					{ID: "b", Text: "Small claims track"},
				},
				CorrectAnswer: "b",
				Points:        10,
				Difficulty:    domain.DifficultyMedium,
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
