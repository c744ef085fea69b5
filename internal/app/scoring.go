package app

import (
	"math"
	"strings"

	"lawlink-quiz-service/internal/domain"
)

const (
	// DefaultPassThreshold is the minimum percentage that passes a quiz.
	DefaultPassThreshold = 70
	// DefaultMinSecondsPerQuestion bounds how fast a quiz may be submitted.
	DefaultMinSecondsPerQuestion = 5
)

// Rules holds the tunable scoring parameters.
type Rules struct {
	PassThreshold         int
	MinSecondsPerQuestion int
}

// DefaultRules returns the standard 70% / 5s-per-question rules.
func DefaultRules() Rules {
	return Rules{
		PassThreshold:         DefaultPassThreshold,
		MinSecondsPerQuestion: DefaultMinSecondsPerQuestion,
	}
}

// Scored is the outcome of grading a submission, before persistence.
type Scored struct {
	Result   domain.QuizResult
	Outcomes []domain.AnswerOutcome
	// Skipped lists question IDs that are not part of the quiz.
	Skipped []string
	// Dangling lists answered questions whose answer key names no option.
	Dangling []string
}

// Score grades answers against the quiz's answer key. The quiz must be the
// unredacted one.
//
// Answers to unknown questions earn nothing and are left out of the result,
// but are still kept (as incorrect) in the persisted outcomes.
func (r Rules) Score(quiz domain.Quiz, answers []domain.SubmittedAnswer) Scored {
	var (
		total    int
		result   = make([]domain.ValidatedAnswer, 0, len(answers))
		outcomes = make([]domain.AnswerOutcome, 0, len(answers))
		skipped  []string
		dangling []string
	)

	for _, answer := range answers {
		question, ok := quiz.Question(answer.QuestionID)
		if !ok {
			skipped = append(skipped, answer.QuestionID)
			outcomes = append(outcomes, domain.AnswerOutcome{
				QuestionID:       answer.QuestionID,
				SelectedOptionID: answer.SelectedOptionID,
				IsCorrect:        false,
				TimeSpent:        answer.TimeSpent,
			})
			continue
		}

		correct, keyed := matchesAnswerKey(question, answer.SelectedOptionID)
		if !keyed {
			dangling = append(dangling, question.ID)
		}
		awarded := 0
		if correct {
			awarded = question.Points
		}
		total += awarded

		result = append(result, domain.ValidatedAnswer{
			QuestionID:       answer.QuestionID,
			SelectedOptionID: answer.SelectedOptionID,
			CorrectOptionID:  question.CorrectAnswer,
			IsCorrect:        correct,
			Explanation:      question.Explanation,
			Points:           awarded,
		})
		outcomes = append(outcomes, domain.AnswerOutcome{
			QuestionID:       answer.QuestionID,
			SelectedOptionID: answer.SelectedOptionID,
			IsCorrect:        correct,
			TimeSpent:        answer.TimeSpent,
		})
	}

	possible := quiz.TotalPoints()
	pct := Percentage(total, possible)
	return Scored{
		Result: domain.QuizResult{
			Score:       total,
			TotalPoints: possible,
			Percentage:  pct,
			Passed:      pct >= r.PassThreshold,
			Answers:     result,
		},
		Outcomes: outcomes,
		Skipped:  skipped,
		Dangling: dangling,
	}
}

// CheckAnswer gives live feedback on a single answer. Unlike Score it
// compares IDs exactly and rejects options that do not exist.
func CheckAnswer(quiz domain.Quiz, questionID, optionID string) (domain.AnswerCheck, error) {
	question, ok := quiz.Question(questionID)
	if !ok {
		return domain.AnswerCheck{}, domain.ErrQuestionNotFound
	}
	if _, ok := question.Option(optionID); !ok {
		return domain.AnswerCheck{}, domain.ErrOptionNotFound
	}

	correct := optionID == question.CorrectAnswer
	points := 0
	if correct {
		points = question.Points
	}
	return domain.AnswerCheck{
		IsCorrect:       correct,
		Explanation:     question.Explanation,
		Points:          points,
		CorrectOptionID: question.CorrectAnswer,
	}, nil
}

// Percentage rounds score/total to a whole percent, halves rounding up.
// A zero total yields 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(score)/float64(total)*100 + 0.5))
}

var quoteStripper = strings.NewReplacer(`"`, "", `'`, "")

// normalizeOptionID removes quote characters left behind by double-encoded payloads.
func normalizeOptionID(id string) string {
	return quoteStripper.Replace(id)
}

// matchesAnswerKey reports whether selected is the question's correct option,
// and whether the answer key references an existing option at all. A key
// that references no option never matches.
func matchesAnswerKey(question domain.Question, selected string) (correct, keyed bool) {
	key := normalizeOptionID(question.CorrectAnswer)
	if key == "" {
		return false, false
	}
	for _, opt := range question.Options {
		if normalizeOptionID(opt.ID) == key {
			keyed = true
			break
		}
	}
	return keyed && normalizeOptionID(selected) == key, keyed
}
