package postgres

import (
	"context"
	"errors"
	"fmt"

	"lawlink-quiz-service/internal/domain"
	"lawlink-quiz-service/internal/infra/document"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizLoader loads quiz JSONB documents from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	doc, err := document.DecodeJSON(raw)
	if err != nil {
		return domain.Quiz{}, err
	}
	return doc.ToQuiz(quizID), nil
}

// ListActiveQuizzes treats documents without an isActive field as active.
func (l *QuizLoader) ListActiveQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, data FROM quizzes
		WHERE COALESCE((data->>'isActive')::boolean, true)
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.QuizSummary, 0)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		doc, err := document.DecodeJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("quiz %s: %w", id, err)
		}
		out = append(out, doc.ToQuiz(id).Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return out, nil
}
