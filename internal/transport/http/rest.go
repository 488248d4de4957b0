package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"winequiz-service/internal/app"
	"winequiz-service/internal/domain"
)

// RESTHandler serves the JSON API around the realtime core: session CRUD and
// lifecycle transitions, content authoring, answers, resume state and the
// leaderboard snapshot.
type RESTHandler struct {
	service  *app.GameService
	issuer   *TokenIssuer
	adminKey string
}

func NewRESTHandler(service *app.GameService, issuer *TokenIssuer, adminKey string) *RESTHandler {
	return &RESTHandler{service: service, issuer: issuer, adminKey: adminKey}
}

// Router assembles the full HTTP surface, websocket endpoint included.
func Router(service *app.GameService, issuer *TokenIssuer, adminKey string) http.Handler {
	rest := NewRESTHandler(service, issuer, adminKey)
	ws := NewWSHandler(service, issuer)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws/game", ws.ServeWS)
	r.Post("/auth/admin", rest.adminToken)
	r.Post("/sessions/{id}/participants", rest.register)

	r.Group(func(r chi.Router) {
		r.Use(issuer.Middleware)
		r.Get("/sessions", rest.listSessions)
		r.Post("/sessions", rest.createSession)
		r.Get("/sessions/{id}", rest.getSession)
		r.Put("/sessions/{id}", rest.updateSession)
		r.Get("/sessions/{id}/rounds", rest.listRounds)
		r.Post("/sessions/{id}/rounds", rest.addRound)
		r.Get("/rounds/{id}/questions", rest.listQuestions)
		r.Post("/rounds/{id}/questions", rest.addQuestion)
		r.Post("/answers", rest.submitAnswer)
		r.Get("/sessions/{id}/answers", rest.listAnswers)
		r.Get("/sessions/{id}/leaderboard", rest.leaderboard)
		r.Get("/users/{userID}/sessions/{sessionID}/state", rest.getState)
		r.Put("/users/{userID}/sessions/{sessionID}/state", rest.putState)
	})
	return r
}

type registerRequest struct {
	Name        string `json:"name"`
	TeamID      string `json:"teamId"`
	IsLeader    bool   `json:"isLeader"`
	Fingerprint string `json:"fingerprint"`
}

type registerResponse struct {
	Participant domain.Participant `json:"participant"`
	Token       string             `json:"token"`
}

func (h *RESTHandler) register(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.TeamID == "" {
		writeError(w, http.StatusBadRequest, "name and teamId are required")
		return
	}
	participant, err := h.service.Register(r.Context(), sessionID, req.Name, req.TeamID, req.Fingerprint, req.IsLeader)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	token, err := h.issuer.Issue(Claims{
		UserID:      participant.ID,
		SessionID:   sessionID,
		TeamID:      participant.TeamID,
		IsLeader:    participant.IsLeader,
		Fingerprint: participant.DeviceFingerprint,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{Participant: participant, Token: token})
}

type adminTokenRequest struct {
	Key       string `json:"key"`
	SessionID string `json:"sessionId"`
}

func (h *RESTHandler) adminToken(w http.ResponseWriter, r *http.Request) {
	var req adminTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if h.adminKey == "" || req.Key != h.adminKey {
		writeError(w, http.StatusForbidden, "invalid admin key")
		return
	}
	token, err := h.issuer.Issue(Claims{UserID: "admin", SessionID: req.SessionID, IsAdmin: true})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *RESTHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListSessions(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *RESTHandler) createSession(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var content domain.GameContent
	if err := json.NewDecoder(r.Body).Decode(&content); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	session, err := h.service.CreateSession(r.Context(), content)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *RESTHandler) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type updateSessionRequest struct {
	Status string `json:"status"`
}

// updateSession drives lifecycle transitions: {"status":"active"} starts,
// {"status":"finished"} ends. Anything else is rejected; the client never
// transitions session status optimistically.
func (h *RESTHandler) updateSession(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sessionID := chi.URLParam(r, "id")
	var (
		session domain.GameSession
		err     error
	)
	switch domain.SessionStatus(req.Status) {
	case domain.SessionActive:
		session, err = h.service.StartSession(r.Context(), sessionID)
	case domain.SessionFinished:
		session, err = h.service.EndSession(r.Context(), sessionID)
	default:
		writeError(w, http.StatusBadRequest, "status must be active or finished")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *RESTHandler) listRounds(w http.ResponseWriter, r *http.Request) {
	content, err := h.service.Content(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, content.Rounds)
}

func (h *RESTHandler) addRound(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var round domain.Round
	if err := json.NewDecoder(r.Body).Decode(&round); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.service.AddRound(r.Context(), chi.URLParam(r, "id"), round)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *RESTHandler) listQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.service.RoundQuestions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *RESTHandler) addQuestion(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var q domain.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.service.AddQuestionToRound(r.Context(), chi.URLParam(r, "id"), q)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type submitAnswerRequest struct {
	SessionID  string                  `json:"sessionId"`
	Submission domain.AnswerSubmission `json:"submission"`
}

func (h *RESTHandler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		req.SessionID = claims.SessionID
	}
	if req.SessionID != claims.SessionID {
		writeError(w, http.StatusForbidden, "token is not valid for this session")
		return
	}
	answer, err := h.service.SubmitAnswer(r.Context(), req.SessionID, claims.UserID, req.Submission)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, answer)
}

func (h *RESTHandler) listAnswers(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	answers, err := h.service.Answers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}

func (h *RESTHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.Leaderboard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *RESTHandler) getState(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	userID := chi.URLParam(r, "userID")
	sessionID := chi.URLParam(r, "sessionID")
	if !claims.IsAdmin && claims.UserID != userID {
		writeError(w, http.StatusForbidden, "token does not match user")
		return
	}
	state, err := h.service.ResumeState(r.Context(), sessionID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *RESTHandler) putState(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	userID := chi.URLParam(r, "userID")
	if !claims.IsAdmin && claims.UserID != userID {
		writeError(w, http.StatusForbidden, "token does not match user")
		return
	}
	var state domain.UserSessionState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	state.UserID = userID
	state.SessionID = chi.URLParam(r, "sessionID")
	saved, err := h.service.SaveDraft(r.Context(), state)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *RESTHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok || !claims.IsAdmin {
		writeError(w, http.StatusForbidden, "admin token required")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeDomainError maps domain sentinels onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrContentNotFound),
		errors.Is(err, domain.ErrParticipantNotFound),
		errors.Is(err, domain.ErrTeamNotFound),
		errors.Is(err, domain.ErrRoundNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrStateNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotTeamLeader):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrAlreadyAnswered),
		errors.Is(err, domain.ErrSessionAlreadyStarted),
		errors.Is(err, domain.ErrSessionFinished),
		errors.Is(err, domain.ErrSessionNotActive),
		errors.Is(err, domain.ErrNotCurrentQuestion),
		errors.Is(err, domain.ErrRoundExhausted),
		errors.Is(err, domain.ErrSessionExhausted),
		errors.Is(err, domain.ErrTeamFull):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
