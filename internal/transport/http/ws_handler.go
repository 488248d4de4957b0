package http

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"winequiz-service/internal/app"
	"winequiz-service/internal/domain"
)

// WSHandler upgrades game-channel connections and wires them into the game
// use cases. One connection serves one session, identified by the token.
type WSHandler struct {
	service  *app.GameService
	issuer   *TokenIssuer
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, issuer *TokenIssuer) *WSHandler {
	return &WSHandler{
		service: service,
		issuer:  issuer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS handles `GET /ws/game?token=<jwt>`.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, err := h.issuer.Parse(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel, err := h.service.Subscribe(r.Context(), claims.SessionID)
	if err != nil {
		_ = writeMessage(conn, domain.ErrorMessage{Message: err.Error()})
		return
	}
	defer cancel()

	send := make(chan domain.Message, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := writeMessage(conn, msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- update:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	h.readLoop(r.Context(), conn, claims, send)

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, claims *Claims, send chan<- domain.Message) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := domain.DecodeMessage(raw)
		if err != nil {
			log.Printf("ws dropping malformed message from %s: %v", claims.UserID, err)
			send <- domain.ErrorMessage{Message: "malformed message"}
			continue
		}
		h.handleMessage(ctx, claims, msg, send)
	}
}

func (h *WSHandler) handleMessage(ctx context.Context, claims *Claims, msg domain.Message, send chan<- domain.Message) {
	fail := func(err error) {
		send <- domain.ErrorMessage{Message: err.Error()}
	}
	requireAdmin := func() bool {
		if !claims.IsAdmin {
			send <- domain.ErrorMessage{Message: "admin token required"}
			return false
		}
		return true
	}

	switch m := msg.(type) {
	case domain.StartSession:
		if !requireAdmin() {
			return
		}
		if _, err := h.service.StartSession(ctx, claims.SessionID); err != nil {
			fail(err)
		}
	case domain.EndSession:
		if !requireAdmin() {
			return
		}
		if _, err := h.service.EndSession(ctx, claims.SessionID); err != nil {
			fail(err)
		}
	case domain.NextQuestion:
		if !requireAdmin() {
			return
		}
		if _, err := h.service.NextQuestion(ctx, claims.SessionID); err != nil {
			fail(err)
		}
	case domain.NextRound:
		if !requireAdmin() {
			return
		}
		if _, err := h.service.NextRound(ctx, claims.SessionID); err != nil {
			fail(err)
		}
	case domain.SubmitAnswer:
		answer, err := h.service.SubmitAnswer(ctx, claims.SessionID, claims.UserID, m.Submission)
		if err != nil {
			fail(err)
			return
		}
		send <- domain.AnswerResult{
			QuestionID:    answer.QuestionID,
			Correct:       answer.IsCorrect,
			PointsAwarded: answer.PointsAwarded,
			AutoSubmitted: answer.AutoSubmitted,
		}
	case domain.GetLiveScores:
		lb, err := h.service.Leaderboard(ctx, claims.SessionID)
		if err != nil {
			fail(err)
			return
		}
		send <- domain.LiveScores{Leaderboard: lb}
	default:
		send <- domain.ErrorMessage{Message: "unsupported message type"}
	}
}

func writeMessage(conn *websocket.Conn, msg domain.Message) error {
	raw, err := domain.EncodeMessage(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, raw)
}
