// Package transport is the client side of the relay protocol: one
// websocket connection carrying JSON envelopes. The relay hands each
// connection a fresh socket id, so the local address rotates on every
// reconnect; anything keyed to a stale address must fail fast instead of
// waiting for an envelope that can no longer arrive.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmarkov/parley/internal/common"
	"github.com/dmarkov/parley/internal/logging"
	"github.com/dmarkov/parley/internal/relay"
)

// Handler consumes the payload of a routed envelope. Handlers run on
// their own goroutine and must not block the read pump.
type Handler func(ctx context.Context, payload json.RawMessage)

const (
	dialTimeout    = 10 * time.Second
	welcomeTimeout = 10 * time.Second
	reconnectBase  = time.Second
	reconnectMax   = 30 * time.Second
)

// Client is a relay connection. Safe for concurrent use; one writer at a
// time is enforced internally.
type Client struct {
	url string
	log logging.Logger

	mu       sync.RWMutex
	conn     *websocket.Conn
	selfAddr string
	handlers map[string]Handler
	waiters  map[string]chan json.RawMessage
	rooms    map[string]bool
	closed   bool

	writeMu sync.Mutex
}

// New creates a client for the relay at url (e.g. "ws://host:8787/ws").
// Call Connect before anything else.
func New(url string, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{
		url:      url,
		log:      log.With("component", "transport"),
		handlers: make(map[string]Handler),
		waiters:  make(map[string]chan json.RawMessage),
		rooms:    make(map[string]bool),
	}
}

// Connect dials the relay, waits for the welcome envelope and starts the
// read pump.
func (c *Client) Connect(ctx context.Context) error {
	conn, addr, err := c.dial(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.selfAddr = addr
	c.mu.Unlock()

	go c.readPump(ctx)
	c.log.Info(ctx, "connected to relay", "selfAddr", addr)
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, string, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: relay dial: %v", common.ErrDisconnected, err)
	}

	conn.SetReadDeadline(time.Now().Add(welcomeTimeout))
	var env relay.Envelope
	if err := conn.ReadJSON(&env); err != nil || env.Event != relay.EventWelcome {
		conn.Close()
		return nil, "", fmt.Errorf("%w: no welcome from relay", common.ErrDisconnected)
	}
	var w relay.Welcome
	if err := json.Unmarshal(env.Payload, &w); err != nil || w.ID == "" {
		conn.Close()
		return nil, "", fmt.Errorf("%w: malformed welcome", common.ErrDisconnected)
	}
	conn.SetReadDeadline(time.Time{})
	return conn, w.ID, nil
}

// SelfAddress returns the socket id the relay currently knows this client
// by. It changes on every reconnect.
func (c *Client) SelfAddress() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selfAddr
}

// OnMessage registers the handler for an event name, replacing any
// previous one.
func (c *Client) OnMessage(event string, h Handler) {
	c.mu.Lock()
	c.handlers[event] = h
	c.mu.Unlock()
}

// Register subscribes this connection to envelopes addressed to a public
// name. Registrations survive reconnects.
func (c *Client) Register(ctx context.Context, name string) error {
	c.mu.Lock()
	c.rooms[name] = true
	c.mu.Unlock()
	return c.write(&relay.Envelope{Event: relay.EventRegister, Room: name})
}

// Send routes a payload to a socket id.
func (c *Client) Send(ctx context.Context, target, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.write(&relay.Envelope{Event: event, Target: target, Payload: data})
}

// SendToRoom routes a payload to every connection registered under a
// public name.
func (c *Client) SendToRoom(ctx context.Context, room, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.write(&relay.Envelope{Event: event, Room: room, Payload: data})
}

// Request sends an envelope and waits for the next envelope carrying
// replyEvent, up to timeout. On timeout the caller gets common.ErrTimeout
// and the answer, should it ever arrive, is discarded.
func (c *Client) Request(ctx context.Context, send func() error, replyEvent string, timeout time.Duration) (json.RawMessage, error) {
	ch := make(chan json.RawMessage, 1)

	c.mu.Lock()
	if _, busy := c.waiters[replyEvent]; busy {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: request already in flight for %q", common.ErrPolicyViolation, replyEvent)
	}
	c.waiters[replyEvent] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.waiters[replyEvent] == ch {
			delete(c.waiters, replyEvent)
		}
		c.mu.Unlock()
	}()

	if err := send(); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case payload, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%w: connection lost while waiting for %q", common.ErrTimeout, replyEvent)
		}
		return payload, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: no %q within %s", common.ErrTimeout, replyEvent, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts the connection down for good; no reconnect follows.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) write(env *relay.Envelope) error {
	c.mu.RLock()
	conn := c.conn
	closed := c.closed
	c.mu.RUnlock()
	if closed || conn == nil {
		return fmt.Errorf("%w: transport is not connected", common.ErrDisconnected)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(env); err != nil {
		return fmt.Errorf("%w: relay write: %v", common.ErrDisconnected, err)
	}
	return nil
}

// readPump dispatches inbound envelopes until the connection drops, then
// reconnects with backoff. Request waiters of a dropped connection are
// failed immediately: their answers were addressed to the old socket id
// and will never be routed again.
func (c *Client) readPump(ctx context.Context) {
	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		for {
			var env relay.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				break
			}
			c.dispatch(ctx, &env)
		}

		c.failWaiters()

		c.mu.RLock()
		closed := c.closed
		c.mu.RUnlock()
		if closed || ctx.Err() != nil {
			return
		}

		if !c.reconnect(ctx) {
			return
		}
	}
}

func (c *Client) dispatch(ctx context.Context, env *relay.Envelope) {
	c.mu.Lock()
	if ch, ok := c.waiters[env.Event]; ok {
		delete(c.waiters, env.Event)
		c.mu.Unlock()
		ch <- env.Payload
		return
	}
	h := c.handlers[env.Event]
	c.mu.Unlock()

	if h == nil {
		c.log.Debug(ctx, "no handler for event", "event", env.Event)
		return
	}
	go h(ctx, env.Payload)
}

func (c *Client) failWaiters() {
	c.mu.Lock()
	for event, ch := range c.waiters {
		delete(c.waiters, event)
		close(ch)
	}
	c.mu.Unlock()
}

// reconnect redials with exponential backoff until it succeeds or the
// client is closed. The relay issues a new socket id, so SelfAddress
// rotates and previously registered rooms are re-joined.
func (c *Client) reconnect(ctx context.Context) bool {
	backoff := reconnectBase
	for {
		c.mu.RLock()
		closed := c.closed
		c.mu.RUnlock()
		if closed || ctx.Err() != nil {
			return false
		}

		conn, addr, err := c.dial(ctx)
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.selfAddr = addr
			rooms := make([]string, 0, len(c.rooms))
			for name := range c.rooms {
				rooms = append(rooms, name)
			}
			c.mu.Unlock()

			for _, name := range rooms {
				if err := c.write(&relay.Envelope{Event: relay.EventRegister, Room: name}); err != nil {
					c.log.Warn(ctx, "room re-registration failed", "room", name, "error", err)
				}
			}
			c.log.Info(ctx, "reconnected to relay", "selfAddr", addr)
			return true
		}

		c.log.Warn(ctx, "reconnect failed", "error", err, "retryIn", backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return false
		}
		if backoff *= 2; backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}
