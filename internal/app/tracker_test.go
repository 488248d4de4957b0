package app_test

import (
	"context"
	"testing"
	"time"

	"winequiz-service/internal/app"
	"winequiz-service/internal/domain"
	"winequiz-service/internal/infra/memory"
)

func TestRemainingSecondsFloorsAtZero(t *testing.T) {
	start := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

	if got := app.RemainingSeconds(start, 120, start.Add(90*time.Second)); got != 30 {
		t.Fatalf("expected 30s remaining, got %d", got)
	}
	if got := app.RemainingSeconds(start, 120, start.Add(120*time.Second)); got != 0 {
		t.Fatalf("expected 0s at exact expiry, got %d", got)
	}
	if got := app.RemainingSeconds(start, 120, start.Add(10*time.Minute)); got != 0 {
		t.Fatalf("remaining went negative: %d", got)
	}
}

func TestResumeRecomputesRemainingFromWallClock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	service := newClockedService(&now, 120)

	alice, err := service.Register(ctx, "s1", "Alice", "t1", "fp-1", false)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := service.StartSession(ctx, "s1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// The client was gone for 90 of the question's 120 seconds. Resume
	// must compute ~30s, not hand back the full duration.
	now = now.Add(90 * time.Second)
	state, err := service.ResumeState(ctx, "s1", alice.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if state.TimeRemaining != 30 {
		t.Fatalf("expected 30s remaining, got %d", state.TimeRemaining)
	}
	if state.HasAnsweredCurrent {
		t.Fatalf("fresh resume should not be marked answered")
	}
	if state.QuestionID != "q1" {
		t.Fatalf("expected resume anchored on q1, got %q", state.QuestionID)
	}
}

func TestResumeResetsStateOnQuestionChange(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	service := newClockedService(&now, 120)

	alice, _ := service.Register(ctx, "s1", "Alice", "t1", "", false)
	if _, err := service.StartSession(ctx, "s1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.SubmitAnswer(ctx, "s1", alice.ID, domain.AnswerSubmission{QuestionID: "q1", SelectedOption: "b"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	state, _ := service.ResumeState(ctx, "s1", alice.ID)
	if !state.HasAnsweredCurrent {
		t.Fatalf("expected answered flag after submit")
	}

	now = now.Add(20 * time.Second)
	if _, err := service.NextQuestion(ctx, "s1"); err != nil {
		t.Fatalf("advance: %v", err)
	}

	state, err := service.ResumeState(ctx, "s1", alice.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if state.QuestionID != "q2" || state.HasAnsweredCurrent {
		t.Fatalf("expected fresh state for q2, got %+v", state)
	}
	if state.TimeRemaining != 120 {
		t.Fatalf("expected full countdown for the new question, got %d", state.TimeRemaining)
	}
}

func TestSaveDraftKeepsAnsweredFlag(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	service := newClockedService(&now, 120)

	alice, _ := service.Register(ctx, "s1", "Alice", "t1", "", false)
	if _, err := service.StartSession(ctx, "s1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	draft := domain.UserSessionState{
		UserID:          alice.ID,
		SessionID:       "s1",
		RoundID:         "r1",
		QuestionID:      "q1",
		SelectedOption:  "a",
		TextAnswerDraft: "",
	}
	saved, err := service.SaveDraft(ctx, draft)
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if saved.SelectedOption != "a" || saved.HasAnsweredCurrent {
		t.Fatalf("unexpected draft state: %+v", saved)
	}

	if _, err := service.SubmitAnswer(ctx, "s1", alice.ID, domain.AnswerSubmission{QuestionID: "q1", SelectedOption: "b"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// A late draft for the already-answered question must not unset the flag.
	late, err := service.SaveDraft(ctx, draft)
	if err != nil {
		t.Fatalf("late draft: %v", err)
	}
	if !late.HasAnsweredCurrent {
		t.Fatalf("late draft cleared the answered flag: %+v", late)
	}
}

func TestResumeAfterSessionEnd(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	service := newClockedService(&now, 120)

	alice, _ := service.Register(ctx, "s1", "Alice", "t1", "", false)
	if _, err := service.StartSession(ctx, "s1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.EndSession(ctx, "s1"); err != nil {
		t.Fatalf("end: %v", err)
	}

	state, err := service.ResumeState(ctx, "s1", alice.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !state.IsQuizCompleted || state.TimeRemaining != 0 {
		t.Fatalf("expected completed state after session end, got %+v", state)
	}
}

func newClockedService(now *time.Time, questionSeconds int) *app.GameService {
	content := testContent(domain.ModeIndividual)
	content.QuestionSeconds = questionSeconds
	loader := memory.NewStaticContentLoader(map[string]domain.GameContent{"s1": content})
	return app.NewGameServiceWithClock(
		memory.NewSessionStore(),
		memory.NewContentRepository(loader, 5*time.Minute),
		memory.NewScoreStore(),
		memory.NewStateStore(),
		func() time.Time { return *now },
	)
}
