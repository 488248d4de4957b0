package memory

import (
	"sync"

	"winequiz-service/internal/app"
	"winequiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.LiveSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.LiveSession),
	}
}

func (s *SessionStore) GetOrCreate(content domain.GameContent) *app.LiveSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[content.SessionID]; ok {
		return session
	}
	session := app.NewLiveSession(content)
	s.sessions[content.SessionID] = session
	return session
}

func (s *SessionStore) Get(sessionID string) (*app.LiveSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
