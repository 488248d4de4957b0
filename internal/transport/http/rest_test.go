package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"winequiz-service/internal/domain"
)

func doJSON(t *testing.T, server *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, server.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestRegisterIssuesToken(t *testing.T) {
	server, _, issuer := newGameServer(t)

	resp := doJSON(t, server, http.MethodPost, "/sessions/s1/participants", "", registerRequest{
		Name:        "Alice",
		TeamID:      "t1",
		Fingerprint: "fp-1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	body := decodeBody[registerResponse](t, resp)
	if body.Participant.Name != "Alice" || body.Participant.TeamID != "t1" {
		t.Fatalf("unexpected participant: %+v", body.Participant)
	}

	claims, err := issuer.Parse(body.Token)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.UserID != body.Participant.ID || claims.TeamID != "t1" || claims.IsAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRegisterUnknownTeam(t *testing.T) {
	server, _, _ := newGameServer(t)
	resp := doJSON(t, server, http.MethodPost, "/sessions/s1/participants", "", registerRequest{
		Name:   "Alice",
		TeamID: "no-such-team",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAdminTokenRequiresKey(t *testing.T) {
	server, _, _ := newGameServer(t)

	resp := doJSON(t, server, http.MethodPost, "/auth/admin", "", adminTokenRequest{Key: "wrong", SessionID: "s1"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a bad key, got %d", resp.StatusCode)
	}

	resp = doJSON(t, server, http.MethodPost, "/auth/admin", "", adminTokenRequest{Key: "admin-key", SessionID: "s1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody[map[string]string](t, resp)
	if body["token"] == "" {
		t.Fatalf("expected a token in the response")
	}
}

func TestBearerRequiredOnProtectedRoutes(t *testing.T) {
	server, _, _ := newGameServer(t)
	resp := doJSON(t, server, http.MethodGet, "/sessions", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a bearer token, got %d", resp.StatusCode)
	}
}

func TestSessionLifecycleOverREST(t *testing.T) {
	server, _, issuer := newGameServer(t)

	adminToken, err := issuer.Issue(Claims{UserID: "admin", SessionID: "s1", IsAdmin: true})
	if err != nil {
		t.Fatalf("issue admin token: %v", err)
	}

	reg := decodeBody[registerResponse](t, doJSON(t, server, http.MethodPost,
		"/sessions/s1/participants", "", registerRequest{Name: "Alice", TeamID: "t1"}))

	resp := doJSON(t, server, http.MethodPut, "/sessions/s1", adminToken, updateSessionRequest{Status: "active"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 starting the session, got %d", resp.StatusCode)
	}
	session := decodeBody[domain.GameSession](t, resp)
	if session.Status != domain.SessionActive || session.CurrentQuestionID != "q1" {
		t.Fatalf("unexpected session after start: %+v", session)
	}

	// Players may not drive lifecycle transitions.
	resp = doJSON(t, server, http.MethodPut, "/sessions/s1", reg.Token, updateSessionRequest{Status: "finished"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a player transition, got %d", resp.StatusCode)
	}

	resp = doJSON(t, server, http.MethodPost, "/answers", reg.Token, submitAnswerRequest{
		Submission: domain.AnswerSubmission{QuestionID: "q1", SelectedOption: "b"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for the answer, got %d", resp.StatusCode)
	}
	answer := decodeBody[domain.Answer](t, resp)
	if !answer.IsCorrect || answer.PointsAwarded != 2 {
		t.Fatalf("unexpected answer: %+v", answer)
	}

	// A second submission for the same question conflicts.
	resp = doJSON(t, server, http.MethodPost, "/answers", reg.Token, submitAnswerRequest{
		Submission: domain.AnswerSubmission{QuestionID: "q1", SelectedOption: "a"},
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for a duplicate answer, got %d", resp.StatusCode)
	}

	resp = doJSON(t, server, http.MethodGet, "/sessions/s1/leaderboard", reg.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	lb := decodeBody[domain.Leaderboard](t, resp)
	if lb.Entries[0].TeamID != "t1" || lb.Entries[0].TotalScore != 2 {
		t.Fatalf("unexpected leaderboard: %+v", lb.Entries)
	}

	resp = doJSON(t, server, http.MethodPut, "/sessions/s1", adminToken, updateSessionRequest{Status: "finished"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 finishing the session, got %d", resp.StatusCode)
	}
	session = decodeBody[domain.GameSession](t, resp)
	if session.Status != domain.SessionFinished {
		t.Fatalf("expected finished session, got %+v", session)
	}
}

func TestStateEndpointEnforcesOwnership(t *testing.T) {
	server, _, issuer := newGameServer(t)

	adminToken, _ := issuer.Issue(Claims{UserID: "admin", SessionID: "s1", IsAdmin: true})
	reg := decodeBody[registerResponse](t, doJSON(t, server, http.MethodPost,
		"/sessions/s1/participants", "", registerRequest{Name: "Alice", TeamID: "t1"}))

	resp := doJSON(t, server, http.MethodPut, "/sessions/s1", adminToken, updateSessionRequest{Status: "active"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start session: %d", resp.StatusCode)
	}

	userID := reg.Participant.ID
	resp = doJSON(t, server, http.MethodGet, "/users/"+userID+"/sessions/s1/state", reg.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 reading own state, got %d", resp.StatusCode)
	}
	state := decodeBody[domain.UserSessionState](t, resp)
	if state.QuestionID != "q1" || state.HasAnsweredCurrent {
		t.Fatalf("unexpected fresh state: %+v", state)
	}

	// Another player's token may not read this user's state.
	other := decodeBody[registerResponse](t, doJSON(t, server, http.MethodPost,
		"/sessions/s1/participants", "", registerRequest{Name: "Bob", TeamID: "t2"}))
	resp = doJSON(t, server, http.MethodGet, "/users/"+userID+"/sessions/s1/state", other.Token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for cross-user state access, got %d", resp.StatusCode)
	}

	// Admin tokens may.
	resp = doJSON(t, server, http.MethodGet, "/users/"+userID+"/sessions/s1/state", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for admin state access, got %d", resp.StatusCode)
	}

	// Drafts save through PUT and ignore path-inconsistent IDs in the body.
	resp = doJSON(t, server, http.MethodPut, "/users/"+userID+"/sessions/s1/state", reg.Token, domain.UserSessionState{
		UserID:         "spoofed",
		SessionID:      "other",
		QuestionID:     "q1",
		SelectedOption: "a",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 saving a draft, got %d", resp.StatusCode)
	}
	saved := decodeBody[domain.UserSessionState](t, resp)
	if saved.UserID != userID || saved.SessionID != "s1" || saved.SelectedOption != "a" {
		t.Fatalf("unexpected saved draft: %+v", saved)
	}
}
