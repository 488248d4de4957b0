package realtime

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"winequiz-service/internal/domain"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func TestReconnectBackoffStopsAtCap(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		if n > 1 {
			// Simulate the server staying down after the first drop.
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		// Abnormal close: eligible for retry.
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "restarting"),
			time.Now().Add(time.Second))
		conn.Close()
	}))
	defer server.Close()

	client := NewClient(server.URL, "/ws/game",
		WithBackoffBase(5*time.Millisecond),
		WithLogger(func(string, ...any) {}),
	)
	if err := client.Connect("token-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	// Backoff ladder at 5ms base: 5+10+20+40+80 = 155ms. Wait well past it.
	time.Sleep(600 * time.Millisecond)

	// One successful dial plus exactly five retries, then give up.
	if got := atomic.LoadInt32(&hits); got != 6 {
		t.Fatalf("expected 6 dials (1 + 5 retries), got %d", got)
	}
	if client.Connected() {
		t.Fatalf("client should surface disconnected state after exhausting retries")
	}

	// No further attempts after the cap.
	time.Sleep(200 * time.Millisecond)
	if got := atomic.LoadInt32(&hits); got != 6 {
		t.Fatalf("retries continued past the cap: %d dials", got)
	}
}

func TestDisconnectNeverRetries(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "/ws/game",
		WithBackoffBase(time.Millisecond),
		WithLogger(func(string, ...any) {}),
	)
	if err := client.Connect("token-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	client.Disconnect()
	client.Disconnect() // safe to repeat

	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("intentional disconnect triggered %d reconnects", got-1)
	}
	if client.Connected() {
		t.Fatalf("expected disconnected state")
	}
}

func TestNormalCloseIsNotRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
			time.Now().Add(time.Second))
		conn.Close()
	}))
	defer server.Close()

	client := NewClient(server.URL, "/ws/game",
		WithBackoffBase(time.Millisecond),
		WithLogger(func(string, ...any) {}),
	)
	if err := client.Connect("token-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("normal closure was retried: %d dials", got)
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "/ws/game", WithLogger(func(string, ...any) {}))
	defer client.Disconnect()

	if err := client.Connect("token-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := client.Connect("token-1"); err != nil {
		t.Fatalf("second connect: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("idempotent connect dialed %d times", got)
	}
}

func TestSendWhenClosedWarnsAndDrops(t *testing.T) {
	var mu sync.Mutex
	var logged []string
	client := NewClient("http://127.0.0.1:0", "/ws/game", WithLogger(func(format string, v ...any) {
		mu.Lock()
		logged = append(logged, fmt.Sprintf(format, v...))
		mu.Unlock()
	}))

	client.Send(domain.GetLiveScores{SessionID: "s1"})

	mu.Lock()
	defer mu.Unlock()
	if len(logged) != 1 || !strings.Contains(logged[0], "not open") {
		t.Fatalf("expected a single channel-not-open warning, got %v", logged)
	}
}

func TestMalformedMessagesAreDropped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"who_knows","data":{}}`))
		valid, _ := domain.EncodeMessage(domain.QuestionChanged{
			SessionID:  "s1",
			RoundID:    "r1",
			QuestionID: "q2",
			Seconds:    60,
		})
		_ = conn.WriteMessage(websocket.TextMessage, valid)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "/ws/game", WithLogger(func(string, ...any) {}))
	defer client.Disconnect()
	if err := client.Connect("token-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	select {
	case msg := <-client.Messages():
		changed, ok := msg.(domain.QuestionChanged)
		if !ok || changed.QuestionID != "q2" {
			t.Fatalf("expected the valid question_changed, got %#v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("valid message never arrived")
	}

	if _, ok := client.LastMessage().(domain.QuestionChanged); !ok {
		t.Fatalf("last message should be the valid one, got %#v", client.LastMessage())
	}
}

func TestWebsocketURLSchemeFollowsBase(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://game.example.com", "ws://game.example.com/ws/game?token=tok"},
		{"https://game.example.com", "wss://game.example.com/ws/game?token=tok"},
	}
	for _, tc := range cases {
		client := NewClient(tc.base, "/ws/game")
		client.token = "tok"
		got, err := client.websocketURL()
		if err != nil {
			t.Fatalf("websocketURL(%s): %v", tc.base, err)
		}
		if got != tc.want {
			t.Fatalf("websocketURL(%s) = %s, want %s", tc.base, got, tc.want)
		}
	}
}
