package domain

import "time"

// SessionStatus is the lifecycle state of a game session.
type SessionStatus string

const (
	SessionPending  SessionStatus = "pending"
	SessionActive   SessionStatus = "active"
	SessionFinished SessionStatus = "finished"
)

// GameMode controls who may submit answers for a team.
type GameMode string

const (
	// ModeIndividual lets every participant answer for themselves.
	ModeIndividual GameMode = "individual"
	// ModeLeader lets only the flagged team leader answer for the team.
	ModeLeader GameMode = "leader"
)

// QuestionType selects the input widget and matching rule for a question.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionDropdown       QuestionType = "dropdown"
	QuestionAutocomplete   QuestionType = "autocomplete"
)

// Team is authored by an administrator before a session starts and is
// immutable during play.
type Team struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Icon       string `json:"icon,omitempty"`
	MaxMembers int    `json:"maxMembers"`
}

// Participant is a registered player within one session.
type Participant struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	TeamID            string    `json:"teamId"`
	IsLeader          bool      `json:"isLeader"`
	DeviceFingerprint string    `json:"deviceFingerprint,omitempty"`
	RegisteredAt      time.Time `json:"registeredAt"`
}

// Option is a selectable answer for multiple-choice and dropdown questions.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is immutable once authored. For multiple_choice and dropdown the
// Answer field holds the correct option ID; for autocomplete it holds the
// expected text, matched case-insensitively against Candidates.
type Question struct {
	ID         string       `json:"id"`
	RoundID    string       `json:"roundId"`
	Type       QuestionType `json:"type"`
	Prompt     string       `json:"prompt"`
	Options    []Option     `json:"options,omitempty"`
	Candidates []string     `json:"candidates,omitempty"`
	Answer     string       `json:"answer"`
	Weight     int          `json:"weight"`  // defaults to 1 if zero
	Seconds    int          `json:"seconds"` // per-question countdown, 0 = session default
}

// Round is a themed block of ordered questions (one wine flight).
type Round struct {
	ID          string     `json:"id"`
	Number      int        `json:"number"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	WineType    string     `json:"wineType,omitempty"`
	Questions   []Question `json:"questions"`
}

// GameContent is the authored, read-mostly definition of a session: its
// teams, rounds and questions. The live lifecycle state is tracked
// separately by the game service.
type GameContent struct {
	SessionID       string   `json:"sessionId"`
	Name            string   `json:"name"`
	Mode            GameMode `json:"mode"`
	DurationSeconds int      `json:"durationSeconds"` // 0 = no auto-end
	QuestionSeconds int      `json:"questionSeconds"` // default per-question countdown
	Teams           []Team   `json:"teams"`
	Rounds          []Round  `json:"rounds"`
}

// GameSession is the live lifecycle view of a session.
type GameSession struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Mode              GameMode      `json:"mode"`
	Status            SessionStatus `json:"status"`
	StartTime         *time.Time    `json:"startTime,omitempty"`
	EndTime           *time.Time    `json:"endTime,omitempty"`
	DurationSeconds   int           `json:"durationSeconds"`
	CurrentRoundID    string        `json:"currentRoundId,omitempty"`
	CurrentRoundNum   int           `json:"currentRoundNumber"`
	CurrentQuestionID string        `json:"currentQuestionId,omitempty"`
	QuestionStartTime *time.Time    `json:"questionStartTime,omitempty"`
}

// AnswerSubmission is the scoring signal from clients. SelectedOption is set
// for multiple_choice/dropdown, TextAnswer for autocomplete. Both empty means
// a timed-out blank submission.
type AnswerSubmission struct {
	QuestionID     string `json:"questionId"`
	SelectedOption string `json:"selectedOption,omitempty"`
	TextAnswer     string `json:"textAnswer,omitempty"`
	AutoSubmitted  bool   `json:"autoSubmitted,omitempty"`
}

// Answer is the persisted record of one submission. Created at most once per
// (user, question).
type Answer struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"sessionId"`
	RoundID        string    `json:"roundId"`
	QuestionID     string    `json:"questionId"`
	UserID         string    `json:"userId"`
	TeamID         string    `json:"teamId"`
	SelectedOption string    `json:"selectedOption,omitempty"`
	TextAnswer     string    `json:"textAnswer,omitempty"`
	IsCorrect      bool      `json:"isCorrect"`
	PointsAwarded  int       `json:"pointsAwarded"`
	AutoSubmitted  bool      `json:"autoSubmitted"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// UserSessionState is the persisted resume anchor for a participant. A
// reconnecting client fetches this record and renders forward from it
// instead of restarting at question one.
type UserSessionState struct {
	UserID             string    `json:"userId"`
	SessionID          string    `json:"sessionId"`
	RoundID            string    `json:"roundId"`
	QuestionID         string    `json:"questionId"`
	QuestionStartTime  time.Time `json:"questionStartTime"`
	TimeRemaining      int       `json:"timeRemaining"` // seconds, never negative
	SelectedOption     string    `json:"selectedOption,omitempty"`
	TextAnswerDraft    string    `json:"textAnswerDraft,omitempty"`
	HasAnsweredCurrent bool      `json:"hasAnsweredCurrent"`
	IsRoundCompleted   bool      `json:"isRoundCompleted"`
	IsQuizCompleted    bool      `json:"isQuizCompleted"`
	DeviceFingerprint  string    `json:"deviceFingerprint,omitempty"`
	LastActivity       time.Time `json:"lastActivity"`
	LastSyncedAt       time.Time `json:"lastSyncedAt"`
}

// LeaderboardEntry is one team's aggregate score.
type LeaderboardEntry struct {
	TeamID     string `json:"teamId"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	Icon       string `json:"icon,omitempty"`
	TotalScore int    `json:"totalScore"`
}

// Leaderboard is an ordered scoreboard snapshot, sorted descending by score.
type Leaderboard struct {
	SessionID string             `json:"sessionId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// FindRound returns the round with the given ID.
func (c GameContent) FindRound(roundID string) (Round, bool) {
	for _, r := range c.Rounds {
		if r.ID == roundID {
			return r, true
		}
	}
	return Round{}, false
}

// FindQuestion returns the question with the given ID and its owning round.
func (c GameContent) FindQuestion(questionID string) (Question, Round, bool) {
	for _, r := range c.Rounds {
		for _, q := range r.Questions {
			if q.ID == questionID {
				return q, r, true
			}
		}
	}
	return Question{}, Round{}, false
}

// FindTeam returns the team with the given ID.
func (c GameContent) FindTeam(teamID string) (Team, bool) {
	for _, t := range c.Teams {
		if t.ID == teamID {
			return t, true
		}
	}
	return Team{}, false
}

// CountdownSeconds returns the countdown for a question, falling back to the
// session default and then to 60 seconds.
func (c GameContent) CountdownSeconds(q Question) int {
	if q.Seconds > 0 {
		return q.Seconds
	}
	if c.QuestionSeconds > 0 {
		return c.QuestionSeconds
	}
	return 60
}
