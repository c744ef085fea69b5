package domain

import "time"

// Difficulty grades a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Option represents a possible answer for a question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question models an MCQ question whose CorrectAnswer references one option ID.
type Question struct {
	ID            string     `json:"id"`
	Prompt        string     `json:"question"`
	Options       []Option   `json:"options"`
	CorrectAnswer string     `json:"correctAnswer"`
	Explanation   string     `json:"explanation"`
	Points        int        `json:"points"`
	Difficulty    Difficulty `json:"difficulty"`
	Category      string     `json:"category"`
	References    []string   `json:"references"`
}

// Option looks up an option by exact ID.
func (q Question) Option(optionID string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return Option{}, false
}

// Quiz is a collection of questions.
type Quiz struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Category         string     `json:"category"`
	Questions        []Question `json:"questions"`
	TimeLimitMinutes int        `json:"timeLimit,omitempty"` // zero means no limit
	IsActive         bool       `json:"isActive"`
}

// TotalPoints is derived from the questions on every call.
func (q Quiz) TotalPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// Question looks up a question by ID.
func (q Quiz) Question(questionID string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == questionID {
			return question, true
		}
	}
	return Question{}, false
}

// Summary drops the questions for listings.
func (q Quiz) Summary() QuizSummary {
	return QuizSummary{
		ID:               q.ID,
		Title:            q.Title,
		Description:      q.Description,
		Category:         q.Category,
		TotalPoints:      q.TotalPoints(),
		TimeLimitMinutes: q.TimeLimitMinutes,
		IsActive:         q.IsActive,
	}
}

// QuizSummary is a quiz without its questions.
type QuizSummary struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	TotalPoints      int    `json:"totalPoints"`
	TimeLimitMinutes int    `json:"timeLimit,omitempty"`
	IsActive         bool   `json:"isActive"`
}

// SubmittedAnswer is one answer as sent by a client.
type SubmittedAnswer struct {
	QuestionID       string  `json:"questionId"`
	SelectedOptionID string  `json:"selectedOptionId"`
	TimeSpent        float64 `json:"timeSpent"` // seconds
}

// Submission is a complete attempt at a quiz.
type Submission struct {
	UserID   string            `json:"userId"`
	QuizID   string            `json:"quizId"`
	Answers  []SubmittedAnswer `json:"answers"`
	Duration float64           `json:"duration"` // seconds
}

// ValidatedAnswer is the post-submission view of one answer.
type ValidatedAnswer struct {
	QuestionID       string `json:"questionId"`
	SelectedOptionID string `json:"selectedOptionId"`
	CorrectOptionID  string `json:"correctOptionId"`
	IsCorrect        bool   `json:"isCorrect"`
	Explanation      string `json:"explanation"`
	Points           int    `json:"points"` // awarded, not possible
}

// QuizResult is returned to the caller after a submission.
type QuizResult struct {
	Score       int               `json:"score"`
	TotalPoints int               `json:"totalPoints"`
	Percentage  int               `json:"percentage"`
	Passed      bool              `json:"passed"`
	Answers     []ValidatedAnswer `json:"answers"`
}

// AnswerOutcome is the persisted form of one answer; the answer key is not
// copied into score records.
type AnswerOutcome struct {
	QuestionID       string  `json:"questionId"`
	SelectedOptionID string  `json:"selectedOptionId"`
	IsCorrect        bool    `json:"isCorrect"`
	TimeSpent        float64 `json:"timeSpent"`
}

// ScoreRecord is an immutable, persisted outcome of one submission.
type ScoreRecord struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	QuizID      string          `json:"quizId"`
	Score       int             `json:"score"`
	Total       int             `json:"total"`
	Percentage  int             `json:"percentage"`
	Passed      bool            `json:"passed"`
	CompletedAt time.Time       `json:"completedAt"`
	Duration    float64         `json:"duration"`
	Answers     []AnswerOutcome `json:"answers"`
}

// ScoreOrder selects how score records are ordered by a store query.
type ScoreOrder int

const (
	// OrderNewestFirst sorts by completion time, newest first.
	OrderNewestFirst ScoreOrder = iota
	// OrderBestFirst sorts by score descending, then completion time ascending.
	OrderBestFirst
)

// ScoreQuery filters score records. Empty fields do not filter; a zero
// Limit is unbounded.
type ScoreQuery struct {
	UserID string
	QuizID string
	Order  ScoreOrder
	Limit  int
}

// HistoryEntry is one line of a user's quiz history.
type HistoryEntry struct {
	ID          string    `json:"id"`
	QuizID      string    `json:"quizId"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Percentage  int       `json:"percentage"`
	Passed      bool      `json:"passed"`
	CompletedAt time.Time `json:"completedAt"`
	Duration    float64   `json:"duration"`
}

// LeaderboardEntry is derived on demand from score records.
type LeaderboardEntry struct {
	UserID      string    `json:"userId"`
	QuizID      string    `json:"quizId"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Percentage  int       `json:"percentage"`
	CompletedAt time.Time `json:"completedAt"`
}

// AnswerCheck is the live feedback for a single answer.
type AnswerCheck struct {
	IsCorrect       bool   `json:"isCorrect"`
	Explanation     string `json:"explanation"`
	Points          int    `json:"points"`
	CorrectOptionID string `json:"correctOptionId"`
}

// QuizStats aggregates all attempts at a quiz.
type QuizStats struct {
	QuizID        string `json:"quizId"`
	TotalAttempts int    `json:"totalAttempts"`
	AverageScore  int    `json:"averageScore"` // mean percentage
	PassRate      int    `json:"passRate"`     // percent of passed attempts
	AverageTime   int    `json:"averageTime"`  // seconds
}
