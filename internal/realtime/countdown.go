package realtime

import (
	"sync"
	"time"
)

// Countdown is the per-question timer. It ticks once per interval (one
// second in production), floors at zero and fires its expiry callback
// exactly once, which callers use to auto-submit the current draft.
type Countdown struct {
	interval time.Duration
	onTick   func(remaining int)
	onExpire func()

	mu        sync.Mutex
	remaining int
	running   bool
	expired   bool
	done      chan struct{}
}

// CountdownOption customizes a Countdown.
type CountdownOption func(*Countdown)

// WithInterval overrides the one-second tick, for tests.
func WithInterval(d time.Duration) CountdownOption {
	return func(c *Countdown) { c.interval = d }
}

// WithTick registers a per-tick observer receiving the remaining seconds.
func WithTick(fn func(remaining int)) CountdownOption {
	return func(c *Countdown) { c.onTick = fn }
}

// NewCountdown builds a countdown of the given length. onExpire may be nil.
func NewCountdown(seconds int, onExpire func(), opts ...CountdownOption) *Countdown {
	c := &Countdown{
		interval:  time.Second,
		remaining: seconds,
		onExpire:  onExpire,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins ticking. Starting an already-running or expired countdown is
// a no-op. A countdown starting at zero expires immediately.
func (c *Countdown) Start() {
	c.mu.Lock()
	if c.running || c.expired {
		c.mu.Unlock()
		return
	}
	if c.remaining <= 0 {
		c.remaining = 0
		c.expired = true
		c.mu.Unlock()
		if c.onExpire != nil {
			c.onExpire()
		}
		return
	}
	c.running = true
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.loop(done)
}

func (c *Countdown) loop(done chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			if !c.running {
				c.mu.Unlock()
				return
			}
			c.remaining--
			if c.remaining <= 0 {
				c.remaining = 0
				c.running = false
				c.expired = true
				onTick, onExpire := c.onTick, c.onExpire
				c.mu.Unlock()
				if onTick != nil {
					onTick(0)
				}
				if onExpire != nil {
					onExpire()
				}
				return
			}
			remaining := c.remaining
			onTick := c.onTick
			c.mu.Unlock()
			if onTick != nil {
				onTick(remaining)
			}
		case <-done:
			return
		}
	}
}

// Stop tears the timer down without firing expiry. Used when the answer is
// submitted or the session goes inactive. Safe to call repeatedly.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.running = false
		close(c.done)
	}
}

// Remaining returns the seconds left; never negative.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Expired reports whether the countdown reached zero.
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}
