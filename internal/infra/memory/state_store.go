package memory

import (
	"context"
	"sync"

	"winequiz-service/internal/domain"
)

// StateStore keeps user resume anchors in process memory.
type StateStore struct {
	mu     sync.RWMutex
	states map[string]domain.UserSessionState // keyed sessionID|userID
}

func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]domain.UserSessionState)}
}

func (s *StateStore) Get(_ context.Context, sessionID, userID string) (domain.UserSessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[sessionID+"|"+userID]
	if !ok {
		return domain.UserSessionState{}, domain.ErrStateNotFound
	}
	return state, nil
}

func (s *StateStore) Put(_ context.Context, state domain.UserSessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.SessionID+"|"+state.UserID] = state
	return nil
}
