package app

import (
	"sync"
	"time"

	"winequiz-service/internal/domain"
)

// LiveSession holds the mutable lifecycle state of one game session:
// status, current round/question pointers and the broadcast subscribers.
// Authored content is read-mostly and replaced wholesale on edits.
type LiveSession struct {
	mu      sync.RWMutex
	content domain.GameContent

	status            domain.SessionStatus
	startTime         *time.Time
	endTime           *time.Time
	roundIdx          int
	questionIdx       int
	questionStartedAt time.Time

	participants map[string]domain.Participant
	answers      map[string]domain.Answer // keyed userID|questionID
	answerOrder  []string

	subscribers map[chan domain.Message]struct{}
	endTimer    *time.Timer
}

// NewLiveSession is exported for stores that need to seed sessions.
func NewLiveSession(content domain.GameContent) *LiveSession {
	return &LiveSession{
		content:      content,
		status:       domain.SessionPending,
		roundIdx:     -1,
		questionIdx:  -1,
		participants: make(map[string]domain.Participant),
		answers:      make(map[string]domain.Answer),
		subscribers:  make(map[chan domain.Message]struct{}),
	}
}

// ID returns the session ID.
func (l *LiveSession) ID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.content.SessionID
}

// Snapshot returns the current lifecycle view.
func (l *LiveSession) Snapshot() domain.GameSession {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

func (l *LiveSession) snapshotLocked() domain.GameSession {
	view := domain.GameSession{
		ID:              l.content.SessionID,
		Name:            l.content.Name,
		Mode:            l.content.Mode,
		Status:          l.status,
		StartTime:       l.startTime,
		EndTime:         l.endTime,
		DurationSeconds: l.content.DurationSeconds,
	}
	if l.status == domain.SessionActive && l.roundIdx >= 0 {
		round := l.content.Rounds[l.roundIdx]
		view.CurrentRoundID = round.ID
		view.CurrentRoundNum = round.Number
		view.CurrentQuestionID = round.Questions[l.questionIdx].ID
		started := l.questionStartedAt
		view.QuestionStartTime = &started
	}
	return view
}

func (l *LiveSession) start(now time.Time) (domain.GameSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.status {
	case domain.SessionFinished:
		return domain.GameSession{}, domain.ErrSessionFinished
	case domain.SessionActive:
		return domain.GameSession{}, domain.ErrSessionAlreadyStarted
	}
	if len(l.content.Rounds) == 0 || len(l.content.Rounds[0].Questions) == 0 {
		return domain.GameSession{}, domain.ErrRoundExhausted
	}
	l.status = domain.SessionActive
	l.startTime = &now
	l.roundIdx = 0
	l.questionIdx = 0
	l.questionStartedAt = now
	return l.snapshotLocked(), nil
}

func (l *LiveSession) end(now time.Time) (domain.GameSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == domain.SessionFinished {
		return domain.GameSession{}, domain.ErrSessionFinished
	}
	if l.status != domain.SessionActive {
		return domain.GameSession{}, domain.ErrSessionNotActive
	}
	l.status = domain.SessionFinished
	l.endTime = &now
	if l.endTimer != nil {
		l.endTimer.Stop()
		l.endTimer = nil
	}
	return l.snapshotLocked(), nil
}

// nextQuestion advances within the current round. Indices only ever grow.
func (l *LiveSession) nextQuestion(now time.Time) (domain.GameSession, domain.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == domain.SessionFinished {
		return domain.GameSession{}, nil, domain.ErrSessionFinished
	}
	if l.status != domain.SessionActive {
		return domain.GameSession{}, nil, domain.ErrSessionNotActive
	}
	round := l.content.Rounds[l.roundIdx]
	if l.questionIdx+1 >= len(round.Questions) {
		return domain.GameSession{}, nil, domain.ErrRoundExhausted
	}
	l.questionIdx++
	l.questionStartedAt = now
	q := round.Questions[l.questionIdx]
	event := domain.QuestionChanged{
		SessionID:  l.content.SessionID,
		RoundID:    round.ID,
		QuestionID: q.ID,
		Seconds:    l.content.CountdownSeconds(q),
	}
	return l.snapshotLocked(), event, nil
}

// nextRound moves to the first question of the following round.
func (l *LiveSession) nextRound(now time.Time) (domain.GameSession, domain.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == domain.SessionFinished {
		return domain.GameSession{}, nil, domain.ErrSessionFinished
	}
	if l.status != domain.SessionActive {
		return domain.GameSession{}, nil, domain.ErrSessionNotActive
	}
	if l.roundIdx+1 >= len(l.content.Rounds) {
		return domain.GameSession{}, nil, domain.ErrSessionExhausted
	}
	next := l.content.Rounds[l.roundIdx+1]
	if len(next.Questions) == 0 {
		return domain.GameSession{}, nil, domain.ErrRoundExhausted
	}
	l.roundIdx++
	l.questionIdx = 0
	l.questionStartedAt = now
	q := next.Questions[0]
	event := domain.RoundChanged{
		SessionID:   l.content.SessionID,
		RoundID:     next.ID,
		RoundNumber: next.Number,
		QuestionID:  q.ID,
		Seconds:     l.content.CountdownSeconds(q),
	}
	return l.snapshotLocked(), event, nil
}

// currentQuestion returns the active question, its round, the countdown
// length and the wall-clock anchor of when it became current.
func (l *LiveSession) currentQuestion() (domain.Question, domain.Round, int, time.Time, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.status != domain.SessionActive || l.roundIdx < 0 {
		return domain.Question{}, domain.Round{}, 0, time.Time{}, domain.ErrSessionNotActive
	}
	round := l.content.Rounds[l.roundIdx]
	q := round.Questions[l.questionIdx]
	return q, round, l.content.CountdownSeconds(q), l.questionStartedAt, nil
}

// progressFlags reports whether the current question is the last of its
// round and the last of the whole session.
func (l *LiveSession) progressFlags() (lastOfRound, lastOfSession bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.roundIdx < 0 {
		return false, false
	}
	lastOfRound = l.questionIdx == len(l.content.Rounds[l.roundIdx].Questions)-1
	lastOfSession = lastOfRound && l.roundIdx == len(l.content.Rounds)-1
	return lastOfRound, lastOfSession
}

func (l *LiveSession) addParticipant(p domain.Participant) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == domain.SessionFinished {
		return domain.ErrSessionFinished
	}
	team, ok := l.content.FindTeam(p.TeamID)
	if !ok {
		return domain.ErrTeamNotFound
	}
	if team.MaxMembers > 0 {
		members := 0
		for _, existing := range l.participants {
			if existing.TeamID == p.TeamID {
				members++
			}
		}
		if members >= team.MaxMembers {
			return domain.ErrTeamFull
		}
	}
	l.participants[p.ID] = p
	return nil
}

func (l *LiveSession) participant(userID string) (domain.Participant, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.participants[userID]
	return p, ok
}

// recordAnswer inserts an answer if and only if none exists for the
// (user, question) pair. The second return reports whether it was inserted.
func (l *LiveSession) recordAnswer(a domain.Answer) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := a.UserID + "|" + a.QuestionID
	if _, exists := l.answers[key]; exists {
		return false
	}
	l.answers[key] = a
	l.answerOrder = append(l.answerOrder, key)
	return true
}

func (l *LiveSession) listAnswers() []domain.Answer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Answer, 0, len(l.answerOrder))
	for _, key := range l.answerOrder {
		out = append(out, l.answers[key])
	}
	return out
}

func (l *LiveSession) contentSnapshot() domain.GameContent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.content
}

func (l *LiveSession) replaceContent(content domain.GameContent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.content = content
}

func (l *LiveSession) armEndTimer(d time.Duration, fire func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.endTimer != nil {
		l.endTimer.Stop()
	}
	l.endTimer = time.AfterFunc(d, fire)
}

func (l *LiveSession) subscribe() (<-chan domain.Message, func()) {
	ch := make(chan domain.Message, 16)
	l.mu.Lock()
	l.subscribers[ch] = struct{}{}
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		if _, ok := l.subscribers[ch]; ok {
			delete(l.subscribers, ch)
			close(ch)
		}
		l.mu.Unlock()
	}
	return ch, cancel
}

// broadcast fans a message out to all subscribers. Slow consumers lose the
// oldest buffered message instead of blocking the sender.
func (l *LiveSession) broadcast(msg domain.Message) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for ch := range l.subscribers {
		select {
		case ch <- msg:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- msg
		}
	}
}
