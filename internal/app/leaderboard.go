package app

import (
	"context"
	"sort"
	"sync"

	"winequiz-service/internal/domain"
)

// Leaderboard reads the authoritative team totals and decorates them with
// team metadata from the session content. Teams that have not scored yet
// appear with zero so the board is always complete.
func (s *GameService) Leaderboard(ctx context.Context, sessionID string) (domain.Leaderboard, error) {
	content, err := s.content.GetContent(ctx, sessionID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	totals, err := s.scores.TeamScores(ctx, sessionID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	entries := make([]domain.LeaderboardEntry, 0, len(content.Teams))
	for _, team := range content.Teams {
		entries = append(entries, domain.LeaderboardEntry{
			TeamID:     team.ID,
			Name:       team.Name,
			Color:      team.Color,
			Icon:       team.Icon,
			TotalScore: totals[team.ID],
		})
	}
	// Pre-order by team ID so equal scores break ties deterministically.
	sort.Slice(entries, func(i, j int) bool { return entries[i].TeamID < entries[j].TeamID })
	SortEntries(entries)
	return domain.Leaderboard{SessionID: sessionID, Entries: entries, UpdatedAt: s.now()}, nil
}

// PublishScores broadcasts a fresh live_scores snapshot to all subscribers.
func (s *GameService) PublishScores(ctx context.Context, sessionID string) error {
	live, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	lb, err := s.Leaderboard(ctx, sessionID)
	if err != nil {
		return err
	}
	live.broadcast(domain.LiveScores{Leaderboard: lb})
	return nil
}

// SortEntries orders a leaderboard in place, descending by total score.
// The sort is stable: equal scores keep their existing relative order.
func SortEntries(entries []domain.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalScore > entries[j].TotalScore
	})
}

// ScoreUpdate is the tagged union of leaderboard mutations. Snapshots and
// partial merges are distinct types on purpose: a snapshot always replaces
// the board wholesale, a merge only upserts a single entry between
// snapshots. This keeps the precedence rule explicit instead of two
// silently-overlapping code paths.
type ScoreUpdate interface {
	isScoreUpdate()
}

// ScoreSnapshot is an authoritative full leaderboard (a live_scores push or
// a REST leaderboard read). Last snapshot wins; snapshots are never merged
// per-field with the previous board.
type ScoreSnapshot struct {
	Entries []domain.LeaderboardEntry
}

// ScoreMerge is an optimistic single-team update applied between snapshots.
type ScoreMerge struct {
	Entry domain.LeaderboardEntry
}

func (ScoreSnapshot) isScoreUpdate() {}
func (ScoreMerge) isScoreUpdate()    {}

// LeaderboardView is the consumer-side scoreboard. It applies tagged
// updates and deliberately ignores answer_received notifications, so a
// stream of answer events without snapshots can never inflate scores.
type LeaderboardView struct {
	mu      sync.RWMutex
	entries []domain.LeaderboardEntry
}

func NewLeaderboardView() *LeaderboardView {
	return &LeaderboardView{}
}

// Apply folds one update into the view and returns the resulting order.
func (v *LeaderboardView) Apply(update ScoreUpdate) []domain.LeaderboardEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch u := update.(type) {
	case ScoreSnapshot:
		v.entries = append(v.entries[:0:0], u.Entries...)
	case ScoreMerge:
		replaced := false
		for i := range v.entries {
			if v.entries[i].TeamID == u.Entry.TeamID {
				v.entries[i] = u.Entry
				replaced = true
				break
			}
		}
		if !replaced {
			v.entries = append(v.entries, u.Entry)
		}
	}
	SortEntries(v.entries)
	return v.entriesLocked()
}

// ApplyMessage folds a realtime message into the view. Only live_scores
// snapshots change the board; in particular answer_received is a no-op.
func (v *LeaderboardView) ApplyMessage(msg domain.Message) []domain.LeaderboardEntry {
	if scores, ok := msg.(domain.LiveScores); ok {
		return v.Apply(ScoreSnapshot{Entries: scores.Leaderboard.Entries})
	}
	return v.Entries()
}

// Entries returns a copy of the current board order.
func (v *LeaderboardView) Entries() []domain.LeaderboardEntry {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.entriesLocked()
}

func (v *LeaderboardView) entriesLocked() []domain.LeaderboardEntry {
	return append([]domain.LeaderboardEntry(nil), v.entries...)
}
