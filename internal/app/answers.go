package app

import (
	"context"
	"log"
	"strings"

	"winequiz-service/internal/domain"
)

// SubmitAnswer records an answer for the session's current question, scores
// it and broadcasts answer_received plus a fresh live_scores snapshot.
//
// The (user, question) pair is counted at most once: a second submission,
// e.g. a manual submit racing the countdown auto-submit, is rejected with
// ErrAlreadyAnswered and changes nothing.
func (s *GameService) SubmitAnswer(ctx context.Context, sessionID, userID string, sub domain.AnswerSubmission) (domain.Answer, error) {
	live, err := s.live(ctx, sessionID)
	if err != nil {
		return domain.Answer{}, err
	}

	participant, ok := live.participant(userID)
	if !ok {
		return domain.Answer{}, domain.ErrParticipantNotFound
	}

	question, round, seconds, startedAt, err := live.currentQuestion()
	if err != nil {
		return domain.Answer{}, err
	}
	if sub.QuestionID != question.ID {
		return domain.Answer{}, domain.ErrNotCurrentQuestion
	}

	content := live.contentSnapshot()
	if content.Mode == domain.ModeLeader && !participant.IsLeader {
		return domain.Answer{}, domain.ErrNotTeamLeader
	}

	correct, points := scoreSubmission(question, sub)
	answer := domain.Answer{
		ID:             "ans-" + userID + "-" + question.ID,
		SessionID:      sessionID,
		RoundID:        round.ID,
		QuestionID:     question.ID,
		UserID:         userID,
		TeamID:         participant.TeamID,
		SelectedOption: sub.SelectedOption,
		TextAnswer:     sub.TextAnswer,
		IsCorrect:      correct,
		PointsAwarded:  points,
		AutoSubmitted:  sub.AutoSubmitted,
		SubmittedAt:    s.now(),
	}

	if !live.recordAnswer(answer) {
		return domain.Answer{}, domain.ErrAlreadyAnswered
	}

	if err := s.markAnswered(ctx, live, participant, question, round, seconds, startedAt); err != nil {
		log.Printf("persist user state for %s/%s: %v", sessionID, userID, err)
	}

	if points > 0 {
		if err := s.scores.AddPoints(ctx, sessionID, participant.TeamID, points); err != nil {
			return domain.Answer{}, err
		}
	}

	live.broadcast(domain.AnswerReceived{
		SessionID:  sessionID,
		QuestionID: question.ID,
		UserID:     userID,
		TeamID:     participant.TeamID,
	})
	if err := s.PublishScores(ctx, sessionID); err != nil {
		log.Printf("publish scores for %s: %v", sessionID, err)
	}
	return answer, nil
}

// Answers lists all recorded answers for a session in submission order.
func (s *GameService) Answers(ctx context.Context, sessionID string) ([]domain.Answer, error) {
	live, err := s.live(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return live.listAnswers(), nil
}

// scoreSubmission checks the submission against the question's answer key.
// A correct answer earns the question weight (1 when unset); anything else,
// including a blank auto-submission, earns zero.
func scoreSubmission(q domain.Question, sub domain.AnswerSubmission) (bool, int) {
	var correct bool
	switch q.Type {
	case domain.QuestionAutocomplete:
		given := strings.TrimSpace(sub.TextAnswer)
		correct = given != "" && strings.EqualFold(given, q.Answer)
	default:
		correct = sub.SelectedOption != "" && sub.SelectedOption == q.Answer
	}
	if !correct {
		return false, 0
	}
	points := q.Weight
	if points == 0 {
		points = 1
	}
	return true, points
}
