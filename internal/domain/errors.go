package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no live session exists for an ID.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrContentNotFound indicates the session content could not be loaded.
	ErrContentNotFound = errors.New("session content not found")
	// ErrParticipantNotFound is returned when a user acts before registering.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrTeamNotFound indicates a referenced team does not exist.
	ErrTeamNotFound = errors.New("team not found")
	// ErrRoundNotFound indicates a referenced round does not exist.
	ErrRoundNotFound = errors.New("round not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrStateNotFound indicates no resume state exists for (user, session).
	ErrStateNotFound = errors.New("user session state not found")

	// ErrSessionNotActive rejects play actions outside the active state.
	ErrSessionNotActive = errors.New("session is not active")
	// ErrSessionFinished rejects any mutation of a finished session.
	ErrSessionFinished = errors.New("session already finished")
	// ErrSessionAlreadyStarted rejects a second start.
	ErrSessionAlreadyStarted = errors.New("session already started")
	// ErrRoundExhausted means the current round has no further question;
	// the admin must advance the round instead.
	ErrRoundExhausted = errors.New("no more questions in current round")
	// ErrSessionExhausted means the last round is over.
	ErrSessionExhausted = errors.New("no more rounds in session")

	// ErrNotCurrentQuestion rejects answers for anything but the question
	// the session currently points at.
	ErrNotCurrentQuestion = errors.New("question is not the current question")
	// ErrAlreadyAnswered keeps (user, question) submissions at-most-once.
	ErrAlreadyAnswered = errors.New("answer already submitted for this question")
	// ErrNotTeamLeader rejects non-leader submissions in leader mode.
	ErrNotTeamLeader = errors.New("only the team leader may answer in leader mode")
	// ErrTeamFull rejects registration beyond the team's member cap.
	ErrTeamFull = errors.New("team is full")
)
