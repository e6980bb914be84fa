package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmarkov/parley/internal/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Default envelope size limit per peer. Big enough for a
	// base64-encoded 8192-bit DH value plus an RSA signature.
	maxMessageSize = 64 * 1024

	// Outbound queue depth per connection.
	sendQueueSize = 64
)

// client is one websocket connection known to the hub by its socket id.
// The send channel is never closed; shutdown is signalled through done so
// a route racing a disconnect can never panic on a closed channel.
type client struct {
	id        string
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	dropOnce  sync.Once
	readLimit int64
	log       logging.Logger
}

func newClient(id string, hub *Hub, conn *websocket.Conn, readLimit int64, log logging.Logger) *client {
	if readLimit <= 0 {
		readLimit = maxMessageSize
	}
	return &client{
		id:        id,
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendQueueSize),
		done:      make(chan struct{}),
		readLimit: readLimit,
		log:       log.With("socket", id),
	}
}

// drop tells writePump to say goodbye and stop. Idempotent.
func (c *client) drop() {
	c.dropOnce.Do(func() { close(c.done) })
}

// readPump reads envelopes off the connection and hands them to the hub
// until the peer goes away. Malformed frames are dropped, not fatal.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug(ctx, "connection closed unexpectedly", "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn(ctx, "dropping unparseable envelope", "error", err)
			continue
		}
		c.hub.route(ctx, c, &env)
	}
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue queues raw bytes for delivery, reporting false when the peer's
// queue is full. A slow consumer loses envelopes rather than stalling the
// relay.
func (c *client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}
