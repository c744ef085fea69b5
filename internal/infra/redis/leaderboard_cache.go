package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"lawlink-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// LeaderboardCache is a Redis implementation of app.LeaderboardCache.
// Entries are stored as: HSET leaderboard:{quizFilter} {limit} {json}
// so that invalidating a quiz drops every cached limit at once.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *LeaderboardCache) GetLeaderboard(ctx context.Context, quizFilter string, limit int) ([]domain.LeaderboardEntry, bool, error) {
	data, err := c.client.HGet(ctx, c.key(quizFilter), strconv.Itoa(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

func (c *LeaderboardCache) SetLeaderboard(ctx context.Context, quizFilter string, limit int, entries []domain.LeaderboardEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	key := c.key(quizFilter)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, strconv.Itoa(limit), data)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (c *LeaderboardCache) Invalidate(ctx context.Context, quizFilters ...string) error {
	if len(quizFilters) == 0 {
		return nil
	}
	keys := make([]string, 0, len(quizFilters))
	for _, f := range quizFilters {
		keys = append(keys, c.key(f))
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *LeaderboardCache) key(quizFilter string) string {
	return "leaderboard:" + quizFilter
}
