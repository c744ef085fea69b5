package app

import (
	"math"
	"strings"

	"lawlink-quiz-service/internal/domain"
)

// ValidateSubmission checks the shape of a submission before the quiz is loaded.
func ValidateSubmission(sub domain.Submission) error {
	if strings.TrimSpace(sub.QuizID) == "" {
		return domain.Invalid("quizId", "Quiz ID is required")
	}
	if strings.TrimSpace(sub.UserID) == "" {
		return domain.Invalid("userId", "User ID is required")
	}
	if len(sub.Answers) == 0 {
		return domain.Invalid("answers", "Answers are required")
	}
	if sub.Duration < 0 || math.IsNaN(sub.Duration) {
		return domain.Invalid("duration", "Valid duration is required")
	}
	for _, answer := range sub.Answers {
		if answer.QuestionID == "" || answer.SelectedOptionID == "" {
			return domain.Invalid("answers", "Each answer must have questionId and selectedOptionId")
		}
		if answer.TimeSpent < 0 || math.IsNaN(answer.TimeSpent) {
			return domain.Invalid("answers", "Each answer must have valid timeSpent")
		}
	}
	return nil
}

// CheckAttempt applies the checks that need the quiz: every question must be
// answered, and the duration must be plausible.
func (r Rules) CheckAttempt(quiz domain.Quiz, sub domain.Submission) error {
	questions := len(quiz.Questions)
	if len(sub.Answers) != questions {
		return domain.Invalid("answers", "All questions must be answered. Expected %d, got %d", questions, len(sub.Answers))
	}

	minTotal := questions * r.MinSecondsPerQuestion
	if sub.Duration < float64(minTotal) {
		return domain.Invalid("duration", "Submission too fast, please take your time. Minimum %d seconds required", minTotal)
	}

	if quiz.TimeLimitMinutes > 0 && sub.Duration > float64(quiz.TimeLimitMinutes*60) {
		return domain.Invalid("duration", "Quiz time limit exceeded")
	}
	return nil
}
