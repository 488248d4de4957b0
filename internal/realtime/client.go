// Package realtime contains the client side of the game channel: a
// reconnecting websocket wrapper and the per-question countdown used by
// player frontends (admin consoles, displays, bots).
package realtime

import (
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"winequiz-service/internal/domain"
)

const defaultMaxRetries = 5

// Client maintains a single live channel to the game server and survives
// transient disconnects without caller action.
//
// Reconnect policy: an abnormal close schedules a redial after 2^attempt
// seconds (1s, 2s, 4s, 8s, 16s), capped at five attempts. A normal close
// (code 1000) or an explicit Disconnect is never retried.
type Client struct {
	baseURL     string
	path        string
	dialer      *websocket.Dialer
	maxRetries  int
	backoffBase time.Duration
	logf        func(format string, v ...any)

	mu         sync.Mutex
	writeMu    sync.Mutex
	conn       *websocket.Conn
	connected  bool
	closing    bool
	attempts   int
	retryTimer *time.Timer
	token      string
	lastMsg    domain.Message

	messages chan domain.Message
}

// Option customizes a Client.
type Option func(*Client)

// WithBackoffBase overrides the one-second backoff unit; tests use this to
// run the full retry ladder in milliseconds.
func WithBackoffBase(d time.Duration) Option {
	return func(c *Client) { c.backoffBase = d }
}

// WithMaxRetries overrides the reconnect attempt cap.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithLogger overrides the log sink.
func WithLogger(logf func(format string, v ...any)) Option {
	return func(c *Client) { c.logf = logf }
}

// NewClient builds a client for baseURL (http or https; the websocket
// scheme follows: encrypted transport whenever the base is encrypted).
func NewClient(baseURL, path string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		path:        path,
		dialer:      websocket.DefaultDialer,
		maxRetries:  defaultMaxRetries,
		backoffBase: time.Second,
		logf:        log.Printf,
		messages:    make(chan domain.Message, 32),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens the channel with the given auth token. It is idempotent:
// if the channel is already open it does nothing.
func (c *Client) Connect(token string) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.closing = false
	c.token = token
	c.attempts = 0
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.mu.Unlock()
	return c.dial()
}

// Disconnect cancels any pending retry, closes the channel with a normal
// closure and clears connection state. Safe to call repeatedly; no
// reconnect is ever attempted afterwards.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closing = true
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.attempts = 0
	c.lastMsg = nil
	c.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}
}

// Send writes a message to the channel. If the channel is not open the
// message is dropped with a logged warning; Send never panics or queues.
func (c *Client) Send(msg domain.Message) {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()
	if !connected || conn == nil {
		c.logf("realtime: dropping %s, channel not open", domain.MessageType(msg))
		return
	}
	raw, err := domain.EncodeMessage(msg)
	if err != nil {
		c.logf("realtime: encode %s: %v", domain.MessageType(msg), err)
		return
	}
	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, raw)
	c.writeMu.Unlock()
	if err != nil {
		c.logf("realtime: send %s: %v", domain.MessageType(msg), err)
	}
}

// Connected reports whether the channel is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// LastMessage returns the most recent valid inbound message, or nil.
func (c *Client) LastMessage() domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastMsg
}

// Messages returns the inbound message stream. When the buffer is full the
// newest message is dropped rather than blocking the reader.
func (c *Client) Messages() <-chan domain.Message {
	return c.messages
}

func (c *Client) dial() error {
	target, err := c.websocketURL()
	if err != nil {
		return err
	}
	conn, resp, err := c.dialer.Dial(target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.logf("realtime: dial %s: %v", target, err)
		c.scheduleReconnect()
		return err
	}
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	c.connected = true
	c.attempts = 0
	c.mu.Unlock()
	go c.readLoop(conn)
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
				c.connected = false
			}
			closing := c.closing
			c.mu.Unlock()
			_ = conn.Close()
			if closing || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			c.logf("realtime: connection lost: %v", err)
			c.scheduleReconnect()
			return
		}
		msg, err := domain.DecodeMessage(raw)
		if err != nil {
			c.logf("realtime: dropping malformed message: %v", err)
			continue
		}
		c.mu.Lock()
		c.lastMsg = msg
		c.mu.Unlock()
		select {
		case c.messages <- msg:
		default:
			c.logf("realtime: message buffer full, dropping %s", domain.MessageType(msg))
		}
	}
}

// scheduleReconnect arms the backoff timer for the next redial. After the
// attempt cap is exhausted the client stays disconnected; Connected()
// surfaces that to the UI.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing || c.retryTimer != nil {
		return
	}
	if c.attempts >= c.maxRetries {
		c.logf("realtime: giving up after %d reconnect attempts", c.maxRetries)
		return
	}
	delay := c.backoffBase << c.attempts
	c.attempts++
	c.logf("realtime: reconnecting in %s (attempt %d/%d)", delay, c.attempts, c.maxRetries)
	c.retryTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.retryTimer = nil
		closing := c.closing
		c.mu.Unlock()
		if closing {
			return
		}
		_ = c.dial()
	})
}

func (c *Client) websocketURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = c.path
	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
