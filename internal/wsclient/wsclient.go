// Package wsclient is a reconnecting WebSocket client for the viewer
// side of the broadcast protocol.
package wsclient

import (
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by Send while the client is not in the
// Connected state. It is non-fatal; the caller may retry later.
var ErrNotConnected = errors.New("wsclient: not connected")

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return "disconnected"
}

type Config struct {
	URL                 string
	ReconnectInterval   time.Duration // base delay before the first retry
	ReconnectMultiplier float64       // geometric growth per consecutive failure
	MaxAttempts         int           // retries before giving up
}

// Client maintains a single logical connection, transparently retrying
// with geometric backoff after transport failures. An explicit Close
// suppresses all further reconnection.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	conn        *websocket.Conn
	attempts    int
	intentional bool
	gaveUp      bool
	pending     *time.Timer

	frames chan []byte

	onState  func(State)
	onGiveUp func()

	// dial and after are replaceable in tests so backoff can be
	// observed without real sockets or real time.
	dial  func(url string) (*websocket.Conn, error)
	after func(d time.Duration, fn func()) *time.Timer
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = 2 * time.Second
	}
	if cfg.ReconnectMultiplier <= 1 {
		cfg.ReconnectMultiplier = 1.5
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	return &Client{
		cfg:    cfg,
		logger: logger,
		frames: make(chan []byte, 64),
		dial: func(url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			return conn, err
		},
		after: func(d time.Duration, fn func()) *time.Timer {
			return time.AfterFunc(d, fn)
		},
	}
}

// Frames is the stream of raw frames received from the server. It stays
// open across reconnects.
func (c *Client) Frames() <-chan []byte { return c.frames }

// OnStateChange registers a callback fired on every state transition.
// Must be called before Connect.
func (c *Client) OnStateChange(fn func(State)) { c.onState = fn }

// OnGiveUp registers a callback fired once when the maximum number of
// reconnect attempts is exhausted. Must be called before Connect.
func (c *Client) OnGiveUp(fn func()) { c.onGiveUp = fn }

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// GaveUp reports whether automatic reconnection has been abandoned.
func (c *Client) GaveUp() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gaveUp
}

// Connect dials the server. On failure a retry is scheduled
// automatically; Connect itself returns after the first attempt.
func (c *Client) Connect() {
	c.mu.Lock()
	// A dial already in flight owns the connection attempt; a second
	// Connect racing a retry timer must not produce two live sockets.
	if c.state == StateConnected || c.state == StateConnecting || c.intentional {
		c.mu.Unlock()
		return
	}
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	c.setState(StateConnecting)
	url := c.cfg.URL
	c.mu.Unlock()

	conn, err := c.dial(url)

	c.mu.Lock()
	if c.intentional {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.logger.Warn("wsclient: connect failed", "url", url, "err", err)
		c.scheduleRetry()
		c.mu.Unlock()
		return
	}
	c.conn = conn
	c.attempts = 0
	c.setState(StateConnected)
	c.mu.Unlock()

	go c.readLoop(conn)
}

// Close disconnects and suppresses any pending or future automatic
// reconnect attempts.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intentional = true
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.setState(StateDisconnected)
}

// Send writes a JSON frame to the server. Rejected with ErrNotConnected
// outside the Connected state.
func (c *Client) Send(v any) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()
	if !connected || conn == nil {
		return ErrNotConnected
	}
	return conn.WriteJSON(v)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
				if !c.intentional {
					c.setState(StateDisconnected)
					c.scheduleRetry()
				}
			}
			c.mu.Unlock()
			return
		}
		c.frames <- data
	}
}

// scheduleRetry arms the backoff timer for the next attempt. The delay
// before attempt k+1 is interval * multiplier^k. Caller holds c.mu.
func (c *Client) scheduleRetry() {
	c.setState(StateDisconnected)
	if c.attempts >= c.cfg.MaxAttempts {
		if !c.gaveUp {
			c.gaveUp = true
			c.logger.Error("wsclient: max reconnect attempts reached", "attempts", c.attempts)
			if c.onGiveUp != nil {
				go c.onGiveUp()
			}
		}
		return
	}
	delay := time.Duration(float64(c.cfg.ReconnectInterval) * math.Pow(c.cfg.ReconnectMultiplier, float64(c.attempts)))
	c.attempts++
	c.logger.Info("wsclient: reconnecting", "attempt", c.attempts, "max", c.cfg.MaxAttempts, "delay", delay)
	c.pending = c.after(delay, c.Connect)
}

// setState fires the transition callback. Caller holds c.mu; the
// callback runs on its own goroutine to avoid lock-ordering surprises.
func (c *Client) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	if c.onState != nil {
		go c.onState(s)
	}
}
