package memory

import (
	"context"
	"sort"
	"sync"

	"lawlink-quiz-service/internal/domain"
)

// ScoreStore is an in-memory implementation of app.ScoreRepository.
type ScoreStore struct {
	mu      sync.RWMutex
	records []domain.ScoreRecord
}

func NewScoreStore() *ScoreStore {
	return &ScoreStore{}
}

func (s *ScoreStore) AppendScore(_ context.Context, record domain.ScoreRecord) error {
	record.Answers = append([]domain.AnswerOutcome(nil), record.Answers...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *ScoreStore) QueryScores(_ context.Context, query domain.ScoreQuery) ([]domain.ScoreRecord, error) {
	s.mu.RLock()
	out := make([]domain.ScoreRecord, 0, len(s.records))
	for _, rec := range s.records {
		if query.UserID != "" && rec.UserID != query.UserID {
			continue
		}
		if query.QuizID != "" && rec.QuizID != query.QuizID {
			continue
		}
		out = append(out, rec)
	}
	s.mu.RUnlock()

	switch query.Order {
	case domain.OrderBestFirst:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Score != out[j].Score {
				return out[i].Score > out[j].Score
			}
			return out[i].CompletedAt.Before(out[j].CompletedAt)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CompletedAt.After(out[j].CompletedAt)
		})
	}

	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

// Len reports how many records are stored.
func (s *ScoreStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
