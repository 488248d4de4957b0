// Package redis holds the Redis-backed stores: team score aggregation in a
// sorted set and user resume state as JSON values with TTL. Both survive a
// server restart, which is what makes participant reconnection seamless.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ScoreStore accumulates team totals in a ZSET per session:
// ZINCRBY game:{sessionID}:scores {points} {teamID}.
type ScoreStore struct {
	client *redis.Client
}

func NewScoreStore(client *redis.Client) *ScoreStore {
	return &ScoreStore{client: client}
}

func (s *ScoreStore) AddPoints(ctx context.Context, sessionID, teamID string, points int) error {
	if err := s.client.ZIncrBy(ctx, s.key(sessionID), float64(points), teamID).Err(); err != nil {
		return fmt.Errorf("incr team score: %w", err)
	}
	return nil
}

func (s *ScoreStore) TeamScores(ctx context.Context, sessionID string) (map[string]int, error) {
	members, err := s.client.ZRangeWithScores(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read team scores: %w", err)
	}
	out := make(map[string]int, len(members))
	for _, m := range members {
		teamID, ok := m.Member.(string)
		if !ok {
			continue
		}
		out[teamID] = int(m.Score)
	}
	return out, nil
}

func (s *ScoreStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

func (s *ScoreStore) key(sessionID string) string {
	return "game:" + sessionID + ":scores"
}
