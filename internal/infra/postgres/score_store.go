package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"lawlink-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ScoreStore appends and queries score records in the scores table.
type ScoreStore struct {
	pool *pgxpool.Pool
}

func NewScoreStore(pool *pgxpool.Pool) *ScoreStore {
	return &ScoreStore{pool: pool}
}

func (s *ScoreStore) AppendScore(ctx context.Context, rec domain.ScoreRecord) error {
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO scores (id, user_id, quiz_id, score, total, percentage, passed, completed_at, duration, answers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb)`,
		rec.ID, rec.UserID, rec.QuizID, rec.Score, rec.Total, rec.Percentage, rec.Passed, rec.CompletedAt, rec.Duration, string(answers),
	)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

func (s *ScoreStore) QueryScores(ctx context.Context, query domain.ScoreQuery) ([]domain.ScoreRecord, error) {
	var (
		sb    strings.Builder
		conds []string
		args  []any
	)
	sb.WriteString(`SELECT id, user_id, quiz_id, score, total, percentage, passed, completed_at, duration, answers FROM scores`)
	if query.UserID != "" {
		args = append(args, query.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if query.QuizID != "" {
		args = append(args, query.QuizID)
		conds = append(conds, fmt.Sprintf("quiz_id = $%d", len(args)))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	if query.Order == domain.OrderBestFirst {
		sb.WriteString(" ORDER BY score DESC, completed_at ASC")
	} else {
		sb.WriteString(" ORDER BY completed_at DESC")
	}
	if query.Limit > 0 {
		args = append(args, query.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var out []domain.ScoreRecord
	for rows.Next() {
		var (
			rec     domain.ScoreRecord
			answers []byte
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.QuizID, &rec.Score, &rec.Total, &rec.Percentage,
			&rec.Passed, &rec.CompletedAt, &rec.Duration, &answers); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		if err := json.Unmarshal(answers, &rec.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of %s: %w", rec.ID, err)
		}
		rec.CompletedAt = rec.CompletedAt.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	return out, nil
}
