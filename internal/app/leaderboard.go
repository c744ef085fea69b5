package app

import (
	"sort"

	"lawlink-quiz-service/internal/domain"
)

// AllQuizzes is the quiz filter that ranks every quiz at once.
const AllQuizzes = "all"

// BuildLeaderboard reduces records to one best entry per user (per user and
// quiz when quizFilter is AllQuizzes) and ranks them. Records are expected to
// be pre-filtered by quiz already.
func BuildLeaderboard(records []domain.ScoreRecord, quizFilter string, limit int) []domain.LeaderboardEntry {
	best := make(map[boardKey]int, len(records))
	entries := make([]domain.LeaderboardEntry, 0, len(records))

	for _, rec := range records {
		key := boardKey{user: rec.UserID}
		if quizFilter == AllQuizzes {
			key.quiz = rec.QuizID
		}

		entry := domain.LeaderboardEntry{
			UserID:      rec.UserID,
			QuizID:      rec.QuizID,
			Score:       rec.Score,
			Total:       rec.Total,
			Percentage:  Percentage(rec.Score, rec.Total),
			CompletedAt: rec.CompletedAt,
		}

		idx, seen := best[key]
		if !seen {
			best[key] = len(entries)
			entries = append(entries, entry)
			continue
		}
		// Equal ratios keep the record seen first.
		if ratio(entry.Score, entry.Total) > ratio(entries[idx].Score, entries[idx].Total) {
			entries[idx] = entry
		}
	}

	// Ranked on the rounded percentage; equal percentages fall back to the
	// earlier completion.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Percentage != entries[j].Percentage {
			return entries[i].Percentage > entries[j].Percentage
		}
		return entries[i].CompletedAt.Before(entries[j].CompletedAt)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

type boardKey struct {
	user, quiz string
}

func ratio(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(score) / float64(total)
}
