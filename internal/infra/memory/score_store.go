package memory

import (
	"context"
	"sync"
)

// ScoreStore is an in-memory implementation of app.ScoreStore for
// redis-less runs and tests.
type ScoreStore struct {
	mu     sync.RWMutex
	totals map[string]map[string]int // sessionID -> teamID -> points
}

func NewScoreStore() *ScoreStore {
	return &ScoreStore{totals: make(map[string]map[string]int)}
}

func (s *ScoreStore) AddPoints(_ context.Context, sessionID, teamID string, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	teams := s.totals[sessionID]
	if teams == nil {
		teams = make(map[string]int)
		s.totals[sessionID] = teams
	}
	teams[teamID] += points
	return nil
}

func (s *ScoreStore) TeamScores(_ context.Context, sessionID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.totals[sessionID]))
	for teamID, points := range s.totals[sessionID] {
		out[teamID] = points
	}
	return out, nil
}

func (s *ScoreStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.totals, sessionID)
	return nil
}
