package stream

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"vertdctl/internal/jobs"
)

// State describes the connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

const (
	maxReconnectDelay = 30 * time.Second
	subscriberBuffer  = 64
)

// Dialer abstracts websocket dialing for tests.
type Dialer interface {
	Dial(urlStr string, requestHeader map[string][]string) (*websocket.Conn, error)
}

type gorillaDialer struct {
	dialer *websocket.Dialer
}

func (d gorillaDialer) Dial(urlStr string, requestHeader map[string][]string) (*websocket.Conn, error) {
	conn, resp, err := d.dialer.Dial(urlStr, requestHeader)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// Client maintains the websocket connection and fans decoded events out to
// subscribers. Connection failures trigger capped exponential backoff until
// Disconnect is called; frame decode failures are dropped.
type Client struct {
	dialer  Dialer
	logger  *slog.Logger
	backoff func(attempt int) time.Duration

	mu             sync.Mutex
	state          State
	conn           *websocket.Conn
	shouldRun      bool
	attempt        int
	generation     uint64
	reconnectTimer *time.Timer
	endpoint       string
	apiKey         string

	subMu   sync.Mutex
	subs    map[uint64]chan jobs.Event
	nextSub uint64

	connected atomic.Bool
}

// Option configures the client.
type Option func(*Client)

// WithLogger attaches a logger for connection diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDialer overrides the websocket dialer.
func WithDialer(dialer Dialer) Option {
	return func(c *Client) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

// New constructs a disconnected client.
func New(opts ...Option) *Client {
	client := &Client{
		dialer:  gorillaDialer{dialer: websocket.DefaultDialer},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		backoff: reconnectDelay,
		subs:    make(map[uint64]chan jobs.Event),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// reconnectDelay implements min(2^attempt, 30) seconds.
func reconnectDelay(attempt int) time.Duration {
	if attempt >= 5 {
		return maxReconnectDelay
	}
	return time.Duration(1<<uint(attempt)) * time.Second
}

// Connect starts (or restarts) the connection lifecycle against endpoint.
// A fresh call resets the reconnect attempt counter.
func (c *Client) Connect(endpoint, apiKey string) {
	c.mu.Lock()
	c.endpoint = endpoint
	c.apiKey = apiKey
	c.shouldRun = true
	c.attempt = 0
	c.generation++
	generation := c.generation
	c.stopTimerLocked()
	c.closeConnLocked()
	c.state = StateConnecting
	c.mu.Unlock()

	go c.dial(generation)
}

// Disconnect tears the connection down and disables auto-reconnect. Safe to
// call repeatedly.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.shouldRun = false
	c.generation++
	c.stopTimerLocked()
	c.closeConnLocked()
	c.state = StateDisconnected
	c.mu.Unlock()
	c.connected.Store(false)
}

// Connected reports the observable connectivity flag.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers an event channel. The returned func unsubscribes and
// closes the channel; events overflowing a slow subscriber are dropped.
func (c *Client) Subscribe() (<-chan jobs.Event, func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan jobs.Event, subscriberBuffer)
	c.subs[id] = ch
	c.subMu.Unlock()

	cancel := func() {
		c.subMu.Lock()
		if existing, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(existing)
		}
		c.subMu.Unlock()
	}
	return ch, cancel
}

func (c *Client) dial(generation uint64) {
	c.mu.Lock()
	if generation != c.generation || !c.shouldRun {
		c.mu.Unlock()
		return
	}
	endpoint, apiKey := c.endpoint, c.apiKey
	c.mu.Unlock()

	target, err := StreamURL(endpoint, apiKey)
	if err != nil {
		c.logger.Debug("stream url derivation failed", slog.Any("error", err))
		c.handleFailure(generation)
		return
	}

	conn, err := c.dialer.Dial(target, nil)
	if err != nil {
		c.logger.Debug("stream dial failed", slog.Any("error", err))
		c.handleFailure(generation)
		return
	}

	c.mu.Lock()
	if generation != c.generation || !c.shouldRun {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.closeConnLocked()
	c.conn = conn
	c.attempt = 0
	c.state = StateConnected
	c.mu.Unlock()
	c.connected.Store(true)

	go c.receiveLoop(generation, conn)
}

func (c *Client) receiveLoop(generation uint64, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleFailure(generation)
			return
		}

		event, err := DecodeEvent(data)
		if err != nil {
			c.logger.Debug("dropping undecodable frame", slog.Any("error", err))
			continue
		}
		c.publish(event)
	}
}

// handleFailure marks the client disconnected and schedules the next attempt
// unless the session was superseded or explicitly stopped.
func (c *Client) handleFailure(generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return
	}
	c.connected.Store(false)
	c.closeConnLocked()

	if !c.shouldRun {
		c.state = StateDisconnected
		return
	}

	c.state = StateReconnecting
	delay := c.backoff(c.attempt)
	c.attempt++
	c.stopTimerLocked()
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if generation != c.generation || !c.shouldRun {
			c.mu.Unlock()
			return
		}
		c.state = StateConnecting
		c.mu.Unlock()
		c.dial(generation)
	})
	c.logger.Debug("stream reconnect scheduled",
		slog.Duration("delay", delay),
		slog.Int("attempt", c.attempt))
}

func (c *Client) publish(event jobs.Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- event:
		default:
			c.logger.Debug("dropping event for slow subscriber", slog.String("type", string(event.Type)))
		}
	}
}

func (c *Client) stopTimerLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

func (c *Client) closeConnLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
