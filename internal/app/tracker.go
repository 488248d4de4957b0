package app

import (
	"context"
	"errors"
	"time"

	"winequiz-service/internal/domain"
)

// RemainingSeconds computes the countdown left for a question from its
// wall-clock start anchor. A reconnecting client must use this instead of a
// possibly-stale local countdown. The result is floored at zero.
func RemainingSeconds(questionStart time.Time, questionSeconds int, now time.Time) int {
	elapsed := int(now.Sub(questionStart) / time.Second)
	remaining := questionSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ResumeState returns the participant's resume anchor for a session,
// reconciled against the session's actual current question.
//
// If the stored state still refers to the current question, the draft and
// the HasAnsweredCurrent flag survive the reconnect; otherwise the state is
// re-anchored on the current question with cleared drafts. TimeRemaining is
// always recomputed from the question's start time.
func (s *GameService) ResumeState(ctx context.Context, sessionID, userID string) (domain.UserSessionState, error) {
	live, err := s.live(ctx, sessionID)
	if err != nil {
		return domain.UserSessionState{}, err
	}
	participant, ok := live.participant(userID)
	if !ok {
		return domain.UserSessionState{}, domain.ErrParticipantNotFound
	}

	now := s.now()
	state, err := s.states.Get(ctx, sessionID, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrStateNotFound) {
			return domain.UserSessionState{}, err
		}
		state = domain.UserSessionState{
			UserID:            userID,
			SessionID:         sessionID,
			DeviceFingerprint: participant.DeviceFingerprint,
			LastActivity:      now,
		}
	}

	if live.Snapshot().Status == domain.SessionFinished {
		state.IsQuizCompleted = true
		state.TimeRemaining = 0
		state.LastSyncedAt = now
		return state, s.states.Put(ctx, state)
	}

	question, round, seconds, startedAt, err := live.currentQuestion()
	if err != nil {
		// Pending session: nothing to anchor on yet.
		state.LastSyncedAt = now
		return state, s.states.Put(ctx, state)
	}

	if state.QuestionID != question.ID {
		state.QuestionID = question.ID
		state.RoundID = round.ID
		state.SelectedOption = ""
		state.TextAnswerDraft = ""
		state.HasAnsweredCurrent = false
		state.IsRoundCompleted = false
	}
	state.QuestionStartTime = startedAt
	state.TimeRemaining = RemainingSeconds(startedAt, seconds, now)
	state.LastSyncedAt = now
	return state, s.states.Put(ctx, state)
}

// SaveDraft syncs a participant's in-progress answer draft and activity
// stamps. It never clears HasAnsweredCurrent for the same question: once an
// answer is in, the flag stays true.
func (s *GameService) SaveDraft(ctx context.Context, incoming domain.UserSessionState) (domain.UserSessionState, error) {
	now := s.now()
	state, err := s.states.Get(ctx, incoming.SessionID, incoming.UserID)
	switch {
	case errors.Is(err, domain.ErrStateNotFound):
		state = incoming
		state.HasAnsweredCurrent = false
	case err != nil:
		return domain.UserSessionState{}, err
	case state.QuestionID == incoming.QuestionID && state.HasAnsweredCurrent:
		// Drafts arriving after submission are ignored; only stamps move.
		state.LastActivity = now
		state.LastSyncedAt = now
		return state, s.states.Put(ctx, state)
	default:
		state.RoundID = incoming.RoundID
		state.QuestionID = incoming.QuestionID
		state.QuestionStartTime = incoming.QuestionStartTime
		state.TimeRemaining = incoming.TimeRemaining
		state.SelectedOption = incoming.SelectedOption
		state.TextAnswerDraft = incoming.TextAnswerDraft
		state.HasAnsweredCurrent = false
		if incoming.DeviceFingerprint != "" {
			state.DeviceFingerprint = incoming.DeviceFingerprint
		}
	}
	state.LastActivity = now
	state.LastSyncedAt = now
	return state, s.states.Put(ctx, state)
}

// markAnswered persists the post-submission state: answered flag up,
// completion flags derived from the question's position.
func (s *GameService) markAnswered(ctx context.Context, live *LiveSession, p domain.Participant, q domain.Question, round domain.Round, seconds int, startedAt time.Time) error {
	now := s.now()
	state, err := s.states.Get(ctx, live.ID(), p.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrStateNotFound) {
			return err
		}
		state = domain.UserSessionState{
			UserID:            p.ID,
			SessionID:         live.ID(),
			DeviceFingerprint: p.DeviceFingerprint,
		}
	}
	lastOfRound, lastOfSession := live.progressFlags()
	state.RoundID = round.ID
	state.QuestionID = q.ID
	state.QuestionStartTime = startedAt
	state.TimeRemaining = RemainingSeconds(startedAt, seconds, now)
	state.HasAnsweredCurrent = true
	state.IsRoundCompleted = lastOfRound
	state.IsQuizCompleted = lastOfSession
	state.LastActivity = now
	state.LastSyncedAt = now
	return s.states.Put(ctx, state)
}
