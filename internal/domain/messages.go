package domain

import (
	"encoding/json"
	"fmt"
)

// Realtime messages travel as a `{type, data}` envelope. The Go side keeps a
// closed set of variants so handlers can switch exhaustively instead of
// poking at an untyped bag.

// Message is the closed union of realtime payloads.
type Message interface {
	messageType() string
}

// Inbound (client to server) control and play messages.

// StartSession asks the server to move a pending session to active.
type StartSession struct {
	SessionID string `json:"sessionId"`
}

// EndSession asks the server to finish an active session.
type EndSession struct {
	SessionID string `json:"sessionId"`
}

// NextQuestion advances to the next question of the current round.
type NextQuestion struct {
	SessionID string `json:"sessionId"`
}

// NextRound advances to the first question of the next round.
type NextRound struct {
	SessionID string `json:"sessionId"`
}

// SubmitAnswer carries a participant's answer for the current question.
type SubmitAnswer struct {
	SessionID  string           `json:"sessionId"`
	Submission AnswerSubmission `json:"submission"`
}

// GetLiveScores requests an on-demand leaderboard push.
type GetLiveScores struct {
	SessionID string `json:"sessionId"`
}

// Outbound (server to client) broadcasts and replies.

// SessionStarted announces the pending-to-active transition.
type SessionStarted struct {
	SessionID string      `json:"sessionId"`
	Session   GameSession `json:"session"`
}

// SessionEnded announces the active-to-finished transition.
type SessionEnded struct {
	SessionID string      `json:"sessionId"`
	Session   GameSession `json:"session"`
}

// QuestionChanged announces the new current question.
type QuestionChanged struct {
	SessionID  string `json:"sessionId"`
	RoundID    string `json:"roundId"`
	QuestionID string `json:"questionId"`
	Seconds    int    `json:"seconds"`
}

// RoundChanged announces the new current round and its first question.
type RoundChanged struct {
	SessionID   string `json:"sessionId"`
	RoundID     string `json:"roundId"`
	RoundNumber int    `json:"roundNumber"`
	QuestionID  string `json:"questionId"`
	Seconds     int    `json:"seconds"`
}

// LiveScores is the authoritative full leaderboard snapshot. Receivers
// replace their board wholesale; it is never merged per-field.
type LiveScores struct {
	Leaderboard Leaderboard `json:"leaderboard"`
}

// AnswerReceived notifies that some participant answered. It deliberately
// carries no score data: displayed scores only change on LiveScores.
type AnswerReceived struct {
	SessionID  string `json:"sessionId"`
	QuestionID string `json:"questionId"`
	UserID     string `json:"userId"`
	TeamID     string `json:"teamId"`
}

// AnswerResult is the per-user outcome of a submission.
type AnswerResult struct {
	QuestionID    string `json:"questionId"`
	Correct       bool   `json:"correct"`
	PointsAwarded int    `json:"pointsAwarded"`
	AutoSubmitted bool   `json:"autoSubmitted"`
}

// ErrorMessage carries a user-displayable failure.
type ErrorMessage struct {
	Message string `json:"message"`
}

func (StartSession) messageType() string    { return "start_session" }
func (EndSession) messageType() string      { return "end_session" }
func (NextQuestion) messageType() string    { return "next_question" }
func (NextRound) messageType() string       { return "next_round" }
func (SubmitAnswer) messageType() string    { return "submit_answer" }
func (GetLiveScores) messageType() string   { return "get_live_scores" }
func (SessionStarted) messageType() string  { return "session_started" }
func (SessionEnded) messageType() string    { return "session_ended" }
func (QuestionChanged) messageType() string { return "question_changed" }
func (RoundChanged) messageType() string    { return "round_changed" }
func (LiveScores) messageType() string      { return "live_scores" }
func (AnswerReceived) messageType() string  { return "answer_received" }
func (AnswerResult) messageType() string    { return "answer_result" }
func (ErrorMessage) messageType() string    { return "error" }

// MessageType returns the wire tag for a message.
func MessageType(m Message) string {
	return m.messageType()
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EncodeMessage wraps a message in its `{type, data}` envelope.
func EncodeMessage(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.messageType(), err)
	}
	return json.Marshal(envelope{Type: m.messageType(), Data: data})
}

// DecodeMessage parses an envelope into its typed variant. Unknown types and
// malformed payloads return an error so callers can log and drop them.
func DecodeMessage(raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var (
		msg Message
		err error
	)
	switch env.Type {
	case "start_session":
		msg, err = decodeData[StartSession](env.Data)
	case "end_session":
		msg, err = decodeData[EndSession](env.Data)
	case "next_question":
		msg, err = decodeData[NextQuestion](env.Data)
	case "next_round":
		msg, err = decodeData[NextRound](env.Data)
	case "submit_answer":
		msg, err = decodeData[SubmitAnswer](env.Data)
	case "get_live_scores":
		msg, err = decodeData[GetLiveScores](env.Data)
	case "session_started":
		msg, err = decodeData[SessionStarted](env.Data)
	case "session_ended":
		msg, err = decodeData[SessionEnded](env.Data)
	case "question_changed":
		msg, err = decodeData[QuestionChanged](env.Data)
	case "round_changed":
		msg, err = decodeData[RoundChanged](env.Data)
	case "live_scores":
		msg, err = decodeData[LiveScores](env.Data)
	case "answer_received":
		msg, err = decodeData[AnswerReceived](env.Data)
	case "answer_result":
		msg, err = decodeData[AnswerResult](env.Data)
	case "error":
		msg, err = decodeData[ErrorMessage](env.Data)
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return msg, nil
}

func decodeData[T Message](data json.RawMessage) (Message, error) {
	var v T
	if len(data) > 0 {
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
	}
	return v, nil
}
