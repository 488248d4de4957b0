package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"winequiz-service/internal/domain"
)

// StateStore persists per-user resume anchors as JSON under
// game:{sessionID}:state:{userID} with a sliding TTL. The TTL doubles as
// participant expiry: abandoned states disappear on their own.
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	return &StateStore{client: client, ttl: ttl}
}

func (s *StateStore) Get(ctx context.Context, sessionID, userID string) (domain.UserSessionState, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.UserSessionState{}, domain.ErrStateNotFound
	}
	if err != nil {
		return domain.UserSessionState{}, fmt.Errorf("read user state: %w", err)
	}
	var state domain.UserSessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.UserSessionState{}, fmt.Errorf("unmarshal user state: %w", err)
	}
	return state, nil
}

func (s *StateStore) Put(ctx context.Context, state domain.UserSessionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal user state: %w", err)
	}
	if err := s.client.Set(ctx, s.key(state.SessionID, state.UserID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("write user state: %w", err)
	}
	return nil
}

func (s *StateStore) key(sessionID, userID string) string {
	return "game:" + sessionID + ":state:" + userID
}
