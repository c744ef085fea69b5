package cli

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"lawlink-quiz-service/internal/config"
	"lawlink-quiz-service/internal/infra/document"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvictSeededDropsReseededQuizzes(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("quiz:consumer_affairs_quiz", `{"id":"consumer_affairs_quiz"}`))
	require.NoError(t, mr.Set("quiz:tenancy_rights_quiz", `{"id":"tenancy_rights_quiz"}`))
	require.NoError(t, mr.Set("quiz:untouched", `{"id":"untouched"}`))

	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()
	docs := []document.QuizDocument{{ID: "consumer_affairs_quiz"}, {ID: "tenancy_rights_quiz"}}

	require.NoError(t, evictSeeded(context.Background(), cfg, docs, discardLogger()))

	assert.False(t, mr.Exists("quiz:consumer_affairs_quiz"))
	assert.False(t, mr.Exists("quiz:tenancy_rights_quiz"))
	assert.True(t, mr.Exists("quiz:untouched"))
}

func TestEvictSeededWithoutRedisIsNoop(t *testing.T) {
	docs := []document.QuizDocument{{ID: "consumer_affairs_quiz"}}
	assert.NoError(t, evictSeeded(context.Background(), config.Default(), docs, discardLogger()))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
