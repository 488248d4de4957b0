package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"winequiz-service/internal/domain"
)

// SessionStore abstracts how live sessions are held (in-memory, Redis-backed).
type SessionStore interface {
	GetOrCreate(content domain.GameContent) *LiveSession
	Get(sessionID string) (*LiveSession, bool)
	Delete(sessionID string)
}

// ContentRepository loads and stores authored session content.
type ContentRepository interface {
	GetContent(ctx context.Context, sessionID string) (domain.GameContent, error)
	PutContent(ctx context.Context, content domain.GameContent) error
	ListContent(ctx context.Context) ([]domain.GameContent, error)
}

// ScoreStore accumulates team points and serves leaderboard reads.
type ScoreStore interface {
	AddPoints(ctx context.Context, sessionID, teamID string, points int) error
	TeamScores(ctx context.Context, sessionID string) (map[string]int, error)
	Clear(ctx context.Context, sessionID string) error
}

// StateStore persists per-user resume anchors.
type StateStore interface {
	Get(ctx context.Context, sessionID, userID string) (domain.UserSessionState, error)
	Put(ctx context.Context, state domain.UserSessionState) error
}

// GameService contains the live-session use cases: lifecycle transitions,
// answer scoring, leaderboard snapshots and reconnect resume.
type GameService struct {
	sessions SessionStore
	content  ContentRepository
	scores   ScoreStore
	states   StateStore
	now      func() time.Time
}

func NewGameService(sessions SessionStore, content ContentRepository, scores ScoreStore, states StateStore) *GameService {
	return &GameService{
		sessions: sessions,
		content:  content,
		scores:   scores,
		states:   states,
		now:      time.Now,
	}
}

// NewGameServiceWithClock is test-only for deterministic timestamps.
func NewGameServiceWithClock(sessions SessionStore, content ContentRepository, scores ScoreStore, states StateStore, now func() time.Time) *GameService {
	s := NewGameService(sessions, content, scores, states)
	s.now = now
	return s
}

// CreateSession stores authored content and registers a pending live session.
func (s *GameService) CreateSession(ctx context.Context, content domain.GameContent) (domain.GameSession, error) {
	if content.SessionID == "" {
		content.SessionID = uuid.NewString()
	}
	if content.Mode == "" {
		content.Mode = domain.ModeIndividual
	}
	for ri := range content.Rounds {
		if content.Rounds[ri].Number == 0 {
			content.Rounds[ri].Number = ri + 1
		}
		for qi := range content.Rounds[ri].Questions {
			content.Rounds[ri].Questions[qi].RoundID = content.Rounds[ri].ID
		}
	}
	if err := s.content.PutContent(ctx, content); err != nil {
		return domain.GameSession{}, err
	}
	live := s.sessions.GetOrCreate(content)
	return live.Snapshot(), nil
}

// ListSessions returns the lifecycle view of every known session.
func (s *GameService) ListSessions(ctx context.Context) ([]domain.GameSession, error) {
	contents, err := s.content.ListContent(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.GameSession, 0, len(contents))
	for _, c := range contents {
		out = append(out, s.sessions.GetOrCreate(c).Snapshot())
	}
	return out, nil
}

// GetSession returns the lifecycle view of one session.
func (s *GameService) GetSession(ctx context.Context, sessionID string) (domain.GameSession, error) {
	live, err := s.live(ctx, sessionID)
	if err != nil {
		return domain.GameSession{}, err
	}
	return live.Snapshot(), nil
}

// Content returns the authored rounds/questions/teams of a session.
func (s *GameService) Content(ctx context.Context, sessionID string) (domain.GameContent, error) {
	return s.content.GetContent(ctx, sessionID)
}

// Register adds a participant to a session before or during play.
func (s *GameService) Register(ctx context.Context, sessionID, name, teamID, fingerprint string, isLeader bool) (domain.Participant, error) {
	live, err := s.live(ctx, sessionID)
	if err != nil {
		return domain.Participant{}, err
	}
	p := domain.Participant{
		ID:                "u-" + uuid.NewString(),
		Name:              name,
		TeamID:            teamID,
		IsLeader:          isLeader,
		DeviceFingerprint: fingerprint,
		RegisteredAt:      s.now(),
	}
	if err := live.addParticipant(p); err != nil {
		return domain.Participant{}, err
	}
	return p, nil
}

// StartSession moves a pending session to active, anchors the first question
// and broadcasts session_started. If the session has a configured duration,
// a timer ends it when the duration elapses.
func (s *GameService) StartSession(ctx context.Context, sessionID string) (domain.GameSession, error) {
	live, err := s.live(ctx, sessionID)
	if err != nil {
		return domain.GameSession{}, err
	}
	view, err := live.start(s.now())
	if err != nil {
		return domain.GameSession{}, err
	}
	if view.DurationSeconds > 0 {
		live.armEndTimer(time.Duration(view.DurationSeconds)*time.Second, func() {
			if _, err := s.EndSession(context.Background(), sessionID); err != nil {
				log.Printf("auto-end session %s: %v", sessionID, err)
			}
		})
	}
	live.broadcast(domain.SessionStarted{SessionID: sessionID, Session: view})
	return view, nil
}

// EndSession moves an active session to finished and broadcasts
// session_ended. Finished is terminal: no further transitions are accepted.
func (s *GameService) EndSession(ctx context.Context, sessionID string) (domain.GameSession, error) {
	live, err := s.live(ctx, sessionID)
	if err != nil {
		return domain.GameSession{}, err
	}
	view, err := live.end(s.now())
	if err != nil {
		return domain.GameSession{}, err
	}
	live.broadcast(domain.SessionEnded{SessionID: sessionID, Session: view})
	return view, nil
}

// NextQuestion advances to the next question within the current round.
// The advance is monotonic; at the end of a round it fails with
// ErrRoundExhausted and the admin must call NextRound.
func (s *GameService) NextQuestion(ctx context.Context, sessionID string) (domain.GameSession, error) {
	live, err := s.live(ctx, sessionID)
	if err != nil {
		return domain.GameSession{}, err
	}
	view, event, err := live.nextQuestion(s.now())
	if err != nil {
		return domain.GameSession{}, err
	}
	live.broadcast(event)
	return view, nil
}

// NextRound advances to the first question of the next round.
func (s *GameService) NextRound(ctx context.Context, sessionID string) (domain.GameSession, error) {
	live, err := s.live(ctx, sessionID)
	if err != nil {
		return domain.GameSession{}, err
	}
	view, event, err := live.nextRound(s.now())
	if err != nil {
		return domain.GameSession{}, err
	}
	live.broadcast(event)
	return view, nil
}

// Subscribe returns a channel of realtime broadcasts for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe(ctx context.Context, sessionID string) (<-chan domain.Message, func(), error) {
	live, err := s.live(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := live.subscribe()
	return ch, cancel, nil
}

// AddRound appends a round to the session content.
func (s *GameService) AddRound(ctx context.Context, sessionID string, round domain.Round) (domain.Round, error) {
	content, err := s.content.GetContent(ctx, sessionID)
	if err != nil {
		return domain.Round{}, err
	}
	if round.ID == "" {
		round.ID = "r-" + uuid.NewString()
	}
	round.Number = len(content.Rounds) + 1
	for qi := range round.Questions {
		round.Questions[qi].RoundID = round.ID
	}
	content.Rounds = append(content.Rounds, round)
	if err := s.content.PutContent(ctx, content); err != nil {
		return domain.Round{}, err
	}
	s.refreshContent(content)
	return round, nil
}

// AddQuestion appends a question to a round.
func (s *GameService) AddQuestion(ctx context.Context, sessionID, roundID string, q domain.Question) (domain.Question, error) {
	content, err := s.content.GetContent(ctx, sessionID)
	if err != nil {
		return domain.Question{}, err
	}
	if q.ID == "" {
		q.ID = "q-" + uuid.NewString()
	}
	q.RoundID = roundID
	placed := false
	for ri := range content.Rounds {
		if content.Rounds[ri].ID == roundID {
			content.Rounds[ri].Questions = append(content.Rounds[ri].Questions, q)
			placed = true
			break
		}
	}
	if !placed {
		return domain.Question{}, domain.ErrRoundNotFound
	}
	if err := s.content.PutContent(ctx, content); err != nil {
		return domain.Question{}, err
	}
	s.refreshContent(content)
	return q, nil
}

// RoundQuestions lists a round's questions, searching across sessions.
func (s *GameService) RoundQuestions(ctx context.Context, roundID string) ([]domain.Question, error) {
	content, err := s.findRoundContent(ctx, roundID)
	if err != nil {
		return nil, err
	}
	round, _ := content.FindRound(roundID)
	return round.Questions, nil
}

// AddQuestionToRound appends a question to a round addressed by its own ID.
func (s *GameService) AddQuestionToRound(ctx context.Context, roundID string, q domain.Question) (domain.Question, error) {
	content, err := s.findRoundContent(ctx, roundID)
	if err != nil {
		return domain.Question{}, err
	}
	return s.AddQuestion(ctx, content.SessionID, roundID, q)
}

func (s *GameService) findRoundContent(ctx context.Context, roundID string) (domain.GameContent, error) {
	contents, err := s.content.ListContent(ctx)
	if err != nil {
		return domain.GameContent{}, err
	}
	for _, content := range contents {
		if _, ok := content.FindRound(roundID); ok {
			return content, nil
		}
	}
	return domain.GameContent{}, domain.ErrRoundNotFound
}

// live resolves the in-process session, seeding it from stored content when
// this instance has not seen the session yet.
func (s *GameService) live(ctx context.Context, sessionID string) (*LiveSession, error) {
	if live, ok := s.sessions.Get(sessionID); ok {
		return live, nil
	}
	content, err := s.content.GetContent(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessions.GetOrCreate(content), nil
}

func (s *GameService) refreshContent(content domain.GameContent) {
	if live, ok := s.sessions.Get(content.SessionID); ok {
		live.replaceContent(content)
	}
}
