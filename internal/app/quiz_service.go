package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"lawlink-quiz-service/internal/domain"

	"github.com/google/uuid"
)

const (
	// MaxListLimit caps history and leaderboard sizes.
	MaxListLimit            = 100
	DefaultHistoryLimit     = 10
	DefaultLeaderboardLimit = 50
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListActiveQuizzes(ctx context.Context) ([]domain.QuizSummary, error)
}

// ScoreRepository is the append-only store of score records.
type ScoreRepository interface {
	AppendScore(ctx context.Context, record domain.ScoreRecord) error
	QueryScores(ctx context.Context, query domain.ScoreQuery) ([]domain.ScoreRecord, error)
}

// LeaderboardCache memoizes computed leaderboards per quiz filter and limit.
type LeaderboardCache interface {
	GetLeaderboard(ctx context.Context, quizFilter string, limit int) ([]domain.LeaderboardEntry, bool, error)
	SetLeaderboard(ctx context.Context, quizFilter string, limit int, entries []domain.LeaderboardEntry) error
	Invalidate(ctx context.Context, quizFilters ...string) error
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	quizzes QuizRepository
	scores  ScoreRepository
	cache   LeaderboardCache
	rules   Rules
	log     *slog.Logger
	now     func() time.Time
	newID   func() string
}

// Option configures a QuizService.
type Option func(*QuizService)

// WithRules overrides the default scoring rules.
func WithRules(rules Rules) Option {
	return func(s *QuizService) { s.rules = rules }
}

// WithLeaderboardCache enables leaderboard caching.
func WithLeaderboardCache(cache LeaderboardCache) Option {
	return func(s *QuizService) { s.cache = cache }
}

// WithLogger sets the service logger; the default discards output.
func WithLogger(log *slog.Logger) Option {
	return func(s *QuizService) { s.log = log }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// NewQuizService builds a service over the quiz and score repositories.
func NewQuizService(quizzes QuizRepository, scores ScoreRepository, opts ...Option) *QuizService {
	s := &QuizService{
		quizzes: quizzes,
		scores:  scores,
		rules:   DefaultRules(),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rules returns the scoring rules in effect.
func (s *QuizService) Rules() Rules {
	return s.rules
}

// GetQuiz returns a quiz. Unless includeAnswers is set, correct answers and
// explanations are blanked.
func (s *QuizService) GetQuiz(ctx context.Context, quizID string, includeAnswers bool) (domain.Quiz, error) {
	if strings.TrimSpace(quizID) == "" {
		return domain.Quiz{}, domain.Invalid("quizId", "Quiz ID is required")
	}
	quiz, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if includeAnswers {
		return quiz, nil
	}
	return redact(quiz), nil
}

// ListQuizzes returns active quizzes without questions, optionally filtered
// by category (case-insensitive).
func (s *QuizService) ListQuizzes(ctx context.Context, category string) ([]domain.QuizSummary, error) {
	quizzes, err := s.quizzes.ListActiveQuizzes(ctx)
	if err != nil {
		s.log.Error("list quizzes failed", slog.Any("error", err))
		return nil, &domain.StorageError{Op: "list quizzes", Err: err}
	}
	if category == "" {
		return quizzes, nil
	}
	filtered := make([]domain.QuizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		if strings.EqualFold(q.Category, category) {
			filtered = append(filtered, q)
		}
	}
	return filtered, nil
}

// Submit grades a submission and persists its score record. Nothing is
// returned unless the record was stored.
func (s *QuizService) Submit(ctx context.Context, sub domain.Submission) (domain.QuizResult, error) {
	if err := ValidateSubmission(sub); err != nil {
		s.log.Warn("submission rejected", slog.String("quizId", sub.QuizID), slog.String("userId", sub.UserID), slog.Any("error", err))
		return domain.QuizResult{}, err
	}

	quiz, err := s.loadQuiz(ctx, sub.QuizID)
	if err != nil {
		return domain.QuizResult{}, err
	}

	if err := s.rules.CheckAttempt(quiz, sub); err != nil {
		s.log.Warn("submission rejected",
			slog.String("quizId", sub.QuizID),
			slog.String("userId", sub.UserID),
			slog.Float64("duration", sub.Duration),
			slog.Int("answers", len(sub.Answers)),
			slog.Int("questions", len(quiz.Questions)),
			slog.Any("error", err),
		)
		return domain.QuizResult{}, err
	}

	scored := s.rules.Score(quiz, sub.Answers)
	for _, questionID := range scored.Skipped {
		s.log.Warn("answer references unknown question", slog.String("quizId", quiz.ID), slog.String("questionId", questionID))
	}
	for _, questionID := range scored.Dangling {
		s.log.Warn("answer key references no option", slog.String("quizId", quiz.ID), slog.String("questionId", questionID))
	}

	record := domain.ScoreRecord{
		ID:          s.newID(),
		UserID:      sub.UserID,
		QuizID:      sub.QuizID,
		Score:       scored.Result.Score,
		Total:       scored.Result.TotalPoints,
		Percentage:  scored.Result.Percentage,
		Passed:      scored.Result.Passed,
		CompletedAt: s.now().UTC(),
		Duration:    sub.Duration,
		Answers:     scored.Outcomes,
	}
	if err := s.scores.AppendScore(ctx, record); err != nil {
		s.log.Error("persist score failed", slog.String("quizId", sub.QuizID), slog.String("userId", sub.UserID), slog.Any("error", err))
		return domain.QuizResult{}, &domain.StorageError{Op: "append score", Err: err}
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, sub.QuizID, AllQuizzes); err != nil {
			s.log.Warn("leaderboard cache invalidation failed", slog.Any("error", err))
		}
	}

	s.log.Info("quiz submitted",
		slog.String("quizId", sub.QuizID),
		slog.String("userId", sub.UserID),
		slog.Int("score", record.Score),
		slog.Int("total", record.Total),
		slog.Bool("passed", record.Passed),
	)
	return scored.Result, nil
}

// ValidateAnswer checks a single answer for live practice feedback.
func (s *QuizService) ValidateAnswer(ctx context.Context, quizID, questionID, optionID string) (domain.AnswerCheck, error) {
	if quizID == "" || questionID == "" || optionID == "" {
		return domain.AnswerCheck{}, domain.Invalid("request", "Quiz ID, question ID, and selected option ID are required")
	}
	quiz, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return domain.AnswerCheck{}, err
	}
	return CheckAnswer(quiz, questionID, optionID)
}

// History returns a user's most recent attempts, newest first.
func (s *QuizService) History(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.Invalid("userId", "User ID is required")
	}
	if err := checkLimit(limit); err != nil {
		return nil, err
	}

	records, err := s.scores.QueryScores(ctx, domain.ScoreQuery{
		UserID: userID,
		Order:  domain.OrderNewestFirst,
		Limit:  limit,
	})
	if err != nil {
		s.log.Error("query history failed", slog.String("userId", userID), slog.Any("error", err))
		return nil, &domain.StorageError{Op: "query history", Err: err}
	}

	history := make([]domain.HistoryEntry, 0, len(records))
	for _, rec := range records {
		history = append(history, domain.HistoryEntry{
			ID:          rec.ID,
			QuizID:      rec.QuizID,
			Score:       rec.Score,
			Total:       rec.Total,
			Percentage:  rec.Percentage,
			Passed:      rec.Passed,
			CompletedAt: rec.CompletedAt,
			Duration:    rec.Duration,
		})
	}
	return history, nil
}

// Leaderboard ranks best attempts for one quiz, or for every quiz when
// quizID is empty or AllQuizzes.
func (s *QuizService) Leaderboard(ctx context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	filter := quizID
	if filter == "" {
		filter = AllQuizzes
	}

	if s.cache != nil {
		entries, ok, err := s.cache.GetLeaderboard(ctx, filter, limit)
		if err != nil {
			s.log.Warn("leaderboard cache read failed", slog.Any("error", err))
		} else if ok {
			return entries, nil
		}
	}

	query := domain.ScoreQuery{Order: domain.OrderBestFirst}
	if filter != AllQuizzes {
		query.QuizID = filter
	}
	records, err := s.scores.QueryScores(ctx, query)
	if err != nil {
		s.log.Error("query leaderboard failed", slog.String("quizId", filter), slog.Any("error", err))
		return nil, &domain.StorageError{Op: "query leaderboard", Err: err}
	}

	entries := BuildLeaderboard(records, filter, limit)
	if s.cache != nil {
		if err := s.cache.SetLeaderboard(ctx, filter, limit, entries); err != nil {
			s.log.Warn("leaderboard cache write failed", slog.Any("error", err))
		}
	}
	return entries, nil
}

// Stats aggregates every recorded attempt at a quiz.
func (s *QuizService) Stats(ctx context.Context, quizID string) (domain.QuizStats, error) {
	if strings.TrimSpace(quizID) == "" {
		return domain.QuizStats{}, domain.Invalid("quizId", "Quiz ID is required")
	}
	if _, err := s.loadQuiz(ctx, quizID); err != nil {
		return domain.QuizStats{}, err
	}

	records, err := s.scores.QueryScores(ctx, domain.ScoreQuery{QuizID: quizID})
	if err != nil {
		s.log.Error("query stats failed", slog.String("quizId", quizID), slog.Any("error", err))
		return domain.QuizStats{}, &domain.StorageError{Op: "query stats", Err: err}
	}
	return summarize(quizID, records), nil
}

func (s *QuizService) loadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err == nil {
		return quiz, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	s.log.Error("load quiz failed", slog.String("quizId", quizID), slog.Any("error", err))
	return domain.Quiz{}, &domain.StorageError{Op: "load quiz", Err: err}
}

func checkLimit(limit int) error {
	if limit < 1 || limit > MaxListLimit {
		return domain.Invalid("limit", "Limit must be between 1 and %d", MaxListLimit)
	}
	return nil
}

// redact copies the quiz with the answer key removed; the cached quiz is shared
// and must not be modified.
func redact(quiz domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		q.CorrectAnswer = ""
		q.Explanation = ""
		questions[i] = q
	}
	quiz.Questions = questions
	return quiz
}

func summarize(quizID string, records []domain.ScoreRecord) domain.QuizStats {
	stats := domain.QuizStats{QuizID: quizID, TotalAttempts: len(records)}
	if len(records) == 0 {
		return stats
	}

	var pctSum, durSum float64
	passed := 0
	for _, rec := range records {
		pctSum += float64(rec.Percentage)
		durSum += rec.Duration
		if rec.Passed {
			passed++
		}
	}
	n := float64(len(records))
	stats.AverageScore = roundHalfUp(pctSum / n)
	stats.PassRate = Percentage(passed, len(records))
	stats.AverageTime = roundHalfUp(durSum / n)
	return stats
}

func roundHalfUp(v float64) int {
	return int(v + 0.5)
}
