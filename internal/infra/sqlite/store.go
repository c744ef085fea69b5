package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lawlink-quiz-service/internal/domain"
	"lawlink-quiz-service/internal/infra/document"
)

// Store serves both quiz documents and score records from one database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM quizzes WHERE id = ?`, quizID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	doc, err := document.DecodeJSON([]byte(raw))
	if err != nil {
		return domain.Quiz{}, err
	}
	return doc.ToQuiz(quizID), nil
}

func (s *Store) ListActiveQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, data FROM quizzes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.QuizSummary, 0)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		doc, err := document.DecodeJSON([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("quiz %s: %w", id, err)
		}
		quiz := doc.ToQuiz(id)
		if quiz.IsActive {
			out = append(out, quiz.Summary())
		}
	}
	return out, rows.Err()
}

// SeedQuizzes upserts quiz documents by id.
func (s *Store) SeedQuizzes(ctx context.Context, docs []document.QuizDocument) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := s.now().UTC().UnixNano()
	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal quiz %s: %w", doc.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO quizzes (id, data, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
			doc.ID, string(data), now); err != nil {
			return fmt.Errorf("upsert quiz %s: %w", doc.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) AppendScore(ctx context.Context, rec domain.ScoreRecord) error {
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scores (id, user_id, quiz_id, score, total, percentage, passed, completed_at, duration, answers)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.QuizID, rec.Score, rec.Total, rec.Percentage, rec.Passed,
		rec.CompletedAt.UTC().UnixNano(), rec.Duration, string(answers),
	)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

func (s *Store) QueryScores(ctx context.Context, query domain.ScoreQuery) ([]domain.ScoreRecord, error) {
	var (
		sb    strings.Builder
		conds []string
		args  []any
	)
	sb.WriteString(`SELECT id, user_id, quiz_id, score, total, percentage, passed, completed_at, duration, answers FROM scores`)
	if query.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, query.UserID)
	}
	if query.QuizID != "" {
		conds = append(conds, "quiz_id = ?")
		args = append(args, query.QuizID)
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	if query.Order == domain.OrderBestFirst {
		sb.WriteString(" ORDER BY score DESC, completed_at ASC, rowid ASC")
	} else {
		sb.WriteString(" ORDER BY completed_at DESC, rowid DESC")
	}
	if query.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, query.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var out []domain.ScoreRecord
	for rows.Next() {
		var (
			rec       domain.ScoreRecord
			completed int64
			answers   string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.QuizID, &rec.Score, &rec.Total, &rec.Percentage,
			&rec.Passed, &completed, &rec.Duration, &answers); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		if err := json.Unmarshal([]byte(answers), &rec.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of %s: %w", rec.ID, err)
		}
		rec.CompletedAt = time.Unix(0, completed).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
