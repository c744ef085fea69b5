package app_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"lawlink-quiz-service/internal/app"
	"lawlink-quiz-service/internal/domain"
	"lawlink-quiz-service/internal/infra/memory"
)

func TestSubmitPersistsAndScores(t *testing.T) {
	ctx := context.Background()
	scores := memory.NewScoreStore()
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	service := newTestService(scores, app.WithClock(func() time.Time { return fixed }))

	result, err := service.Submit(ctx, domain.Submission{
		UserID:   "u1",
		QuizID:   "quiz-1",
		Duration: 30,
		Answers: []domain.SubmittedAnswer{
			{QuestionID: "q1", SelectedOptionID: "a", TimeSpent: 10},
			{QuestionID: "q2", SelectedOptionID: "c", TimeSpent: 20},
		},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Score != 10 || result.TotalPoints != 20 || result.Percentage != 50 || result.Passed {
		t.Fatalf("unexpected result %+v", result)
	}

	records, _ := scores.QueryScores(ctx, domain.ScoreQuery{UserID: "u1"})
	if len(records) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(records))
	}
	rec := records[0]
	if rec.ID == "" || !rec.CompletedAt.Equal(fixed) || rec.Duration != 30 || rec.Percentage != 50 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if len(rec.Answers) != 2 || !rec.Answers[0].IsCorrect || rec.Answers[1].TimeSpent != 20 {
		t.Fatalf("unexpected stored answers %+v", rec.Answers)
	}
}

func TestSubmitRejectsBeforeStoring(t *testing.T) {
	ctx := context.Background()
	scores := memory.NewScoreStore()
	service := newTestService(scores)

	answers := []domain.SubmittedAnswer{
		{QuestionID: "q1", SelectedOptionID: "a"},
		{QuestionID: "q2", SelectedOptionID: "d"},
	}

	_, err := service.Submit(ctx, domain.Submission{UserID: "u1", QuizID: "quiz-1", Answers: answers, Duration: 3})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error for fast submission, got %v", err)
	}

	_, err = service.Submit(ctx, domain.Submission{UserID: "u1", QuizID: "missing", Answers: answers, Duration: 30})
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}

	_, err = service.Submit(ctx, domain.Submission{QuizID: "quiz-1", Answers: answers, Duration: 30})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error for missing user, got %v", err)
	}

	if scores.Len() != 0 {
		t.Fatalf("rejected submissions must not be stored, have %d", scores.Len())
	}
}

func TestSubmitStoreFailureReturnsNoResult(t *testing.T) {
	service := app.NewQuizService(newQuizRepo(), failingScores{})

	result, err := service.Submit(context.Background(), domain.Submission{
		UserID:   "u1",
		QuizID:   "quiz-1",
		Duration: 30,
		Answers: []domain.SubmittedAnswer{
			{QuestionID: "q1", SelectedOptionID: "a"},
			{QuestionID: "q2", SelectedOptionID: "d"},
		},
	})
	var storageErr *domain.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if result.Score != 0 || result.Answers != nil {
		t.Fatalf("expected empty result on failure, got %+v", result)
	}
}

func TestGetQuizRedactsWithoutTouchingCache(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewScoreStore())

	redacted, err := service.GetQuiz(ctx, "quiz-1", false)
	if err != nil {
		t.Fatalf("get quiz failed: %v", err)
	}
	for _, q := range redacted.Questions {
		if q.CorrectAnswer != "" || q.Explanation != "" {
			t.Fatalf("expected redacted question, got %+v", q)
		}
	}

	full, err := service.GetQuiz(ctx, "quiz-1", true)
	if err != nil {
		t.Fatalf("get quiz failed: %v", err)
	}
	if full.Questions[0].CorrectAnswer != "a" {
		t.Fatalf("cached quiz lost its answer key: %+v", full.Questions[0])
	}

	if _, err := service.GetQuiz(ctx, "nope", false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListQuizzesFiltersCategory(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewScoreStore())

	all, err := service.ListQuizzes(ctx, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 active quizzes, got %d", len(all))
	}

	housing, _ := service.ListQuizzes(ctx, "HOUSING")
	if len(housing) != 1 || housing[0].ID != "quiz-2" {
		t.Fatalf("expected only quiz-2, got %+v", housing)
	}
}

func TestValidateAnswer(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewScoreStore())

	check, err := service.ValidateAnswer(ctx, "quiz-1", "q2", "d")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !check.IsCorrect || check.Points != 10 {
		t.Fatalf("unexpected check %+v", check)
	}

	if _, err := service.ValidateAnswer(ctx, "quiz-1", "q2", ""); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := service.ValidateAnswer(ctx, "quiz-1", "q9", "a"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	scores := memory.NewScoreStore()
	service := newTestService(scores)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_ = scores.AppendScore(ctx, domain.ScoreRecord{
			ID: string(rune('a' + i)), UserID: "u1", QuizID: "quiz-1",
			Score: i, Total: 20, CompletedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	_ = scores.AppendScore(ctx, domain.ScoreRecord{ID: "other", UserID: "u2", QuizID: "quiz-1", CompletedAt: base})

	history, err := service.History(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 2 || history[0].ID != "c" || history[1].ID != "b" {
		t.Fatalf("unexpected history %+v", history)
	}

	for _, limit := range []int{0, 101} {
		if _, err := service.History(ctx, "u1", limit); !domain.IsValidation(err) {
			t.Fatalf("limit %d: expected validation error, got %v", limit, err)
		}
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	scores := memory.NewScoreStore()
	service := newTestService(scores)

	empty, err := service.Stats(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if empty.TotalAttempts != 0 || empty.AverageScore != 0 || empty.PassRate != 0 {
		t.Fatalf("expected zero stats, got %+v", empty)
	}

	_ = scores.AppendScore(ctx, domain.ScoreRecord{QuizID: "quiz-1", Percentage: 100, Passed: true, Duration: 40})
	_ = scores.AppendScore(ctx, domain.ScoreRecord{QuizID: "quiz-1", Percentage: 50, Duration: 25})
	_ = scores.AppendScore(ctx, domain.ScoreRecord{QuizID: "quiz-1", Percentage: 25, Duration: 30})
	_ = scores.AppendScore(ctx, domain.ScoreRecord{QuizID: "quiz-2", Percentage: 0, Duration: 999})

	stats, err := service.Stats(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	want := domain.QuizStats{QuizID: "quiz-1", TotalAttempts: 3, AverageScore: 58, PassRate: 33, AverageTime: 32}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}

	if _, err := service.Stats(ctx, "nope"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLeaderboardUsesAndInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	scores := memory.NewScoreStore()
	cache := newRecordingCache()
	service := newTestService(scores, app.WithLeaderboardCache(cache))

	submit := func(user, second string) {
		t.Helper()
		_, err := service.Submit(ctx, domain.Submission{
			UserID: user, QuizID: "quiz-1", Duration: 30,
			Answers: []domain.SubmittedAnswer{
				{QuestionID: "q1", SelectedOptionID: "a"},
				{QuestionID: "q2", SelectedOptionID: second},
			},
		})
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	submit("u1", "c")
	board, err := service.Leaderboard(ctx, "quiz-1", 10)
	if err != nil {
		t.Fatalf("leaderboard failed: %v", err)
	}
	if len(board) != 1 || board[0].Percentage != 50 {
		t.Fatalf("unexpected board %+v", board)
	}
	if _, ok := cache.boards[cacheKey("quiz-1", 10)]; !ok {
		t.Fatalf("expected leaderboard to be cached")
	}

	submit("u2", "d")
	if len(cache.invalidated) != 4 || cache.invalidated[2] != "quiz-1" || cache.invalidated[3] != app.AllQuizzes {
		t.Fatalf("unexpected invalidations %v", cache.invalidated)
	}

	board, _ = service.Leaderboard(ctx, "", 10)
	if len(board) != 2 || board[0].UserID != "u2" || board[0].Percentage != 100 {
		t.Fatalf("unexpected all-quiz board %+v", board)
	}
	if _, ok := cache.boards[cacheKey(app.AllQuizzes, 10)]; !ok {
		t.Fatalf("empty quiz filter should cache under %q", app.AllQuizzes)
	}

	if _, err := service.Leaderboard(ctx, "quiz-1", 0); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for limit 0, got %v", err)
	}
}

func TestLeaderboardSurvivesCacheFailure(t *testing.T) {
	ctx := context.Background()
	scores := memory.NewScoreStore()
	_ = scores.AppendScore(ctx, domain.ScoreRecord{UserID: "u1", QuizID: "quiz-1", Score: 5, Total: 20})
	service := newTestService(scores, app.WithLeaderboardCache(brokenCache{}))

	board, err := service.Leaderboard(ctx, "quiz-1", 5)
	if err != nil {
		t.Fatalf("cache errors must not fail the request: %v", err)
	}
	if len(board) != 1 || board[0].Percentage != 25 {
		t.Fatalf("unexpected board %+v", board)
	}
}

func newTestService(scores app.ScoreRepository, opts ...app.Option) *app.QuizService {
	return app.NewQuizService(newQuizRepo(), scores, opts...)
}

func newQuizRepo() *memory.QuizRepository {
	quiz := twoQuestionQuiz()
	housing := domain.Quiz{ID: "quiz-2", Title: "Tenancy", Category: "housing", IsActive: true}
	draft := domain.Quiz{ID: "quiz-3", Title: "Draft", Category: "housing"}
	loader := memory.NewStaticQuizLoader(map[string]domain.Quiz{
		quiz.ID:    quiz,
		housing.ID: housing,
		draft.ID:   draft,
	})
	return memory.NewQuizRepository(loader, time.Minute)
}

type failingScores struct{}

func (failingScores) AppendScore(context.Context, domain.ScoreRecord) error {
	return errors.New("disk full")
}

func (failingScores) QueryScores(context.Context, domain.ScoreQuery) ([]domain.ScoreRecord, error) {
	return nil, errors.New("disk full")
}

type recordingCache struct {
	boards      map[string][]domain.LeaderboardEntry
	invalidated []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{boards: make(map[string][]domain.LeaderboardEntry)}
}

func cacheKey(filter string, limit int) string {
	return filter + "/" + strconv.Itoa(limit)
}

func (c *recordingCache) GetLeaderboard(_ context.Context, filter string, limit int) ([]domain.LeaderboardEntry, bool, error) {
	entries, ok := c.boards[cacheKey(filter, limit)]
	return entries, ok, nil
}

func (c *recordingCache) SetLeaderboard(_ context.Context, filter string, limit int, entries []domain.LeaderboardEntry) error {
	c.boards[cacheKey(filter, limit)] = entries
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, filters ...string) error {
	c.invalidated = append(c.invalidated, filters...)
	for key := range c.boards {
		for _, f := range filters {
			if strings.HasPrefix(key, f+"/") {
				delete(c.boards, key)
			}
		}
	}
	return nil
}

type brokenCache struct{}

func (brokenCache) GetLeaderboard(context.Context, string, int) ([]domain.LeaderboardEntry, bool, error) {
	return nil, false, errors.New("redis down")
}

func (brokenCache) SetLeaderboard(context.Context, string, int, []domain.LeaderboardEntry) error {
	return errors.New("redis down")
}

func (brokenCache) Invalidate(context.Context, ...string) error {
	return errors.New("redis down")
}
