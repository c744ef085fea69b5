// Package document maps loosely typed quiz documents, as stored in the
// document tables or written in seed files, onto domain.Quiz.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"lawlink-quiz-service/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTitle      = "Quiz"
	DefaultCategory   = "general"
	DefaultPoints     = 10
	DefaultDifficulty = domain.DifficultyMedium
)

// QuizDocument is the stored shape of a quiz. Missing fields are defaulted by ToQuiz.
type QuizDocument struct {
	ID          string             `json:"id,omitempty" yaml:"id,omitempty"`
	Title       string             `json:"title,omitempty" yaml:"title,omitempty"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string             `json:"category,omitempty" yaml:"category,omitempty"`
	Questions   []QuestionDocument `json:"questions,omitempty" yaml:"questions,omitempty"`
	TimeLimit   *int               `json:"timeLimit,omitempty" yaml:"timeLimit,omitempty"`
	IsActive    *bool              `json:"isActive,omitempty" yaml:"isActive,omitempty"`
}

type QuestionDocument struct {
	ID            Scalar           `json:"id,omitempty" yaml:"id,omitempty"`
	Question      string           `json:"question,omitempty" yaml:"question,omitempty"`
	Options       []OptionDocument `json:"options,omitempty" yaml:"options,omitempty"`
	CorrectAnswer Scalar           `json:"correctAnswer,omitempty" yaml:"correctAnswer,omitempty"`
	Explanation   string           `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Points        *int             `json:"points,omitempty" yaml:"points,omitempty"`
	Difficulty    string           `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Category      string           `json:"category,omitempty" yaml:"category,omitempty"`
	References    []string         `json:"references,omitempty" yaml:"references,omitempty"`
}

type OptionDocument struct {
	ID   Scalar `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

// Scalar is a string that may have been written as a JSON/YAML number or bool.
type Scalar string

func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*s = Scalar(num.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*s = Scalar(strconv.FormatBool(b))
		return nil
	}
	return fmt.Errorf("document: expected scalar, got %s", data)
}

func (s *Scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("document: expected scalar at line %d", node.Line)
	}
	if node.Tag == "!!null" {
		*s = ""
		return nil
	}
	*s = Scalar(node.Value)
	return nil
}

// DecodeJSON parses a stored JSON quiz document.
func DecodeJSON(data []byte) (QuizDocument, error) {
	var doc QuizDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return QuizDocument{}, fmt.Errorf("decode quiz document: %w", err)
	}
	return doc, nil
}

// ToQuiz applies the defaulting rules once and returns the strict domain quiz.
func (d QuizDocument) ToQuiz(id string) domain.Quiz {
	quiz := domain.Quiz{
		ID:          id,
		Title:       orDefault(d.Title, DefaultTitle),
		Description: d.Description,
		Category:    orDefault(d.Category, DefaultCategory),
		Questions:   make([]domain.Question, 0, len(d.Questions)),
		IsActive:    d.IsActive == nil || *d.IsActive,
	}
	if d.TimeLimit != nil && *d.TimeLimit > 0 {
		quiz.TimeLimitMinutes = *d.TimeLimit
	}

	for i, q := range d.Questions {
		question := domain.Question{
			ID:            orDefault(string(q.ID), fmt.Sprintf("q_%d", i)),
			Prompt:        q.Question,
			Options:       make([]domain.Option, 0, len(q.Options)),
			CorrectAnswer: string(q.CorrectAnswer),
			Explanation:   q.Explanation,
			Points:        DefaultPoints,
			Difficulty:    domain.Difficulty(q.Difficulty),
			Category:      orDefault(q.Category, quiz.Category),
			References:    q.References,
		}
		if q.Points != nil && *q.Points >= 0 {
			question.Points = *q.Points
		}
		if !question.Difficulty.Valid() {
			question.Difficulty = DefaultDifficulty
		}
		if question.References == nil {
			question.References = []string{}
		}
		for _, opt := range q.Options {
			question.Options = append(question.Options, domain.Option{ID: string(opt.ID), Text: opt.Text})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}

// FromQuiz converts a domain quiz back to its stored shape.
func FromQuiz(q domain.Quiz) QuizDocument {
	active := q.IsActive
	doc := QuizDocument{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		Category:    q.Category,
		Questions:   make([]QuestionDocument, 0, len(q.Questions)),
		IsActive:    &active,
	}
	if q.TimeLimitMinutes > 0 {
		limit := q.TimeLimitMinutes
		doc.TimeLimit = &limit
	}
	for _, question := range q.Questions {
		points := question.Points
		qd := QuestionDocument{
			ID:            Scalar(question.ID),
			Question:      question.Prompt,
			CorrectAnswer: Scalar(question.CorrectAnswer),
			Explanation:   question.Explanation,
			Points:        &points,
			Difficulty:    string(question.Difficulty),
			Category:      question.Category,
			References:    question.References,
		}
		for _, opt := range question.Options {
			qd.Options = append(qd.Options, OptionDocument{ID: Scalar(opt.ID), Text: opt.Text})
		}
		doc.Questions = append(doc.Questions, qd)
	}
	return doc
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
