// Package feed maintains one reconnecting WebSocket connection to the
// Polymarket CLOB market channel and delivers parsed events to a single
// consumer callback.
package feed

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 60 * time.Second
	reconnectBackoff      = 2
	dialTimeout           = 10 * time.Second
	pingInterval          = 30 * time.Second
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
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// MessageHandler receives every successfully parsed feed message. It is
// invoked synchronously on the feed's read goroutine.
type MessageHandler func(Message)

// Client is a reconnecting market-data feed. A Client is single-use: after
// Stop it stays disconnected and a fresh Client must be created for the
// next cycle.
type Client struct {
	url       string
	onMessage MessageHandler

	mu         sync.Mutex
	conn       *websocket.Conn
	state      State
	subscribed map[string]struct{}
	delay      time.Duration

	// Guards writes; gorilla conns allow one concurrent writer only.
	writeMu sync.Mutex

	// Sequence tracking for gap observability. Touched only by the read
	// goroutine.
	lastSeq map[string]int64

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	started  bool
}

// NewClient creates a feed client for the given WebSocket URL.
func NewClient(url string, onMessage MessageHandler) *Client {
	return &Client{
		url:        url,
		onMessage:  onMessage,
		subscribed: make(map[string]struct{}),
		delay:      initialReconnectDelay,
		lastSeq:    make(map[string]int64),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Connect records the initial subscription set. The connection itself is
// established by Run.
func (c *Client) Connect(assetIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subscribed = make(map[string]struct{}, len(assetIDs))
	for _, id := range assetIDs {
		c.subscribed[id] = struct{}{}
	}
	log.Info().Int("assets", len(assetIDs)).Str("url", c.url).Msg("Feed configured")
}

// Run starts the connection loop. With blocking=false it runs on a
// background goroutine that Stop will join.
func (c *Client) Run(blocking bool) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	if blocking {
		c.runLoop()
	} else {
		go c.runLoop()
	}
}

// IsConnected reports whether the feed currently has a live connection.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected
}

// Subscribe adds assets to the desired subscription set and, when
// connected, sends the subscribe message immediately. While disconnected
// the set is flushed on the next successful connect.
func (c *Client) Subscribe(assetIDs []string) {
	if len(assetIDs) == 0 {
		return
	}

	c.mu.Lock()
	for _, id := range assetIDs {
		c.subscribed[id] = struct{}{}
	}
	conn, connected := c.conn, c.state == StateConnected
	c.mu.Unlock()

	if !connected {
		log.Debug().Int("assets", len(assetIDs)).Msg("Subscription queued (not connected)")
		return
	}
	if err := c.writeJSON(conn, subscribeMessage(assetIDs)); err != nil {
		log.Error().Err(err).Msg("Failed to send subscribe message")
		return
	}
	log.Info().Int("assets", len(assetIDs)).Msg("Subscribed")
}

// Unsubscribe removes assets from the subscription set.
func (c *Client) Unsubscribe(assetIDs []string) {
	if len(assetIDs) == 0 {
		return
	}

	c.mu.Lock()
	for _, id := range assetIDs {
		delete(c.subscribed, id)
	}
	conn, connected := c.conn, c.state == StateConnected
	c.mu.Unlock()

	if !connected {
		return
	}
	msg := map[string]any{"type": "unsubscribe", "assets_ids": assetIDs}
	if err := c.writeJSON(conn, msg); err != nil {
		log.Error().Err(err).Msg("Failed to send unsubscribe message")
		return
	}
	log.Info().Int("assets", len(assetIDs)).Msg("Unsubscribed")
}

// Stop closes the connection, prevents reconnection, and joins the
// background goroutine. If the goroutine does not exit within timeout this
// is logged as a warning; Stop never hangs the caller.
func (c *Client) Stop(timeout time.Duration) {
	c.stopOnce.Do(func() { close(c.stopCh) })

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	started := c.started
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if !started {
		return
	}

	select {
	case <-c.doneCh:
		log.Debug().Msg("Feed goroutine terminated")
	case <-time.After(timeout):
		log.Warn().Dur("timeout", timeout).Msg("Feed goroutine did not terminate in time")
	}
}

// runLoop owns the connection: dial, flush subscriptions, read until the
// transport fails, then back off and retry with a fresh connection.
func (c *Client) runLoop() {
	defer close(c.doneCh)
	defer c.setState(StateDisconnected)

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		c.setState(StateConnecting)
		dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
		conn, _, err := dialer.Dial(c.url, nil)
		if err != nil {
			log.Error().Err(err).Str("url", c.url).Msg("WebSocket dial failed")
			if !c.waitReconnect() {
				return
			}
			continue
		}

		c.mu.Lock()
		// Stop may have fired while the dial was in flight; the conn it
		// closed was nil, so discard this one instead of publishing it.
		select {
		case <-c.stopCh:
			c.mu.Unlock()
			conn.Close()
			return
		default:
		}
		c.conn = conn
		c.state = StateConnected
		c.delay = initialReconnectDelay
		pending := make([]string, 0, len(c.subscribed))
		for id := range c.subscribed {
			pending = append(pending, id)
		}
		c.mu.Unlock()

		log.Info().Int("assets", len(pending)).Msg("WebSocket connected")

		if len(pending) > 0 {
			if err := c.writeJSON(conn, subscribeMessage(pending)); err != nil {
				log.Error().Err(err).Msg("Failed to flush subscriptions")
			}
		}

		connDone := make(chan struct{})
		go c.pingLoop(conn, connDone)
		c.readLoop(conn)
		close(connDone)
		conn.Close()

		select {
		case <-c.stopCh:
			return
		default:
		}
		if !c.waitReconnect() {
			return
		}
	}
}

// waitReconnect sleeps the current backoff delay and doubles it up to the
// ceiling. Returns false when stopped during the wait.
func (c *Client) waitReconnect() bool {
	c.mu.Lock()
	c.conn = nil
	c.state = StateReconnecting
	delay := c.delay
	c.delay *= reconnectBackoff
	if c.delay > maxReconnectDelay {
		c.delay = maxReconnectDelay
	}
	c.mu.Unlock()

	log.Info().Dur("delay", delay).Msg("Reconnecting...")
	select {
	case <-c.stopCh:
		return false
	case <-time.After(delay):
		return true
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stopCh:
			default:
				log.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}
		c.processPayload(data)
	}
}

// processPayload handles one raw frame, which may hold a single message or
// an array of messages. Unparseable payloads are dropped; a bad frame never
// stops delivery of the next one.
func (c *Client) processPayload(data []byte) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		raws = []json.RawMessage{json.RawMessage(data)}
	}

	for _, raw := range raws {
		var env wsEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Warn().Err(err).Msg("Dropping malformed feed message")
			continue
		}
		c.checkSequence(&env)

		msg := parseMessage(&env, raw)
		if c.onMessage != nil {
			c.onMessage(msg)
		}
	}
}

// checkSequence logs gaps in per-asset sequence numbers. Gaps are observed,
// never acted upon.
func (c *Client) checkSequence(env *wsEnvelope) {
	if env.Sequence == nil || env.AssetID == "" {
		return
	}
	seq := *env.Sequence
	if last, ok := c.lastSeq[env.AssetID]; ok && seq != last+1 {
		log.Warn().
			Str("asset", env.AssetID).
			Int64("expected", last+1).
			Int64("got", seq).
			Msg("Sequence gap detected")
	}
	c.lastSeq[env.AssetID] = seq
}

// pingLoop keeps the connection alive until it is torn down.
func (c *Client) pingLoop(conn *websocket.Conn, connDone chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-connDone:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *Client) writeJSON(conn *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(v)
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func subscribeMessage(assetIDs []string) map[string]any {
	// The market channel expects "assets_ids" (plural).
	return map[string]any{"type": "market", "assets_ids": assetIDs}
}
