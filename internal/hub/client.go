package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"relaychat/internal/domain"
)

const (
	sendBufferSize = 256
	readDeadline   = 120 * time.Second
)

// Client mediates between one websocket connection and the Hub. Each
// client owns its outbound queue; the hub and room index only hold a
// handle for delivery, and only the client itself ever closes the
// queue.
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// enqueue hands an outbound frame to the client's writer without
// blocking. Frames to a connection whose queue is full are dropped; the
// stalled connection will fail its own read deadline soon after. A
// publish racing the connection's teardown is a no-op, never a send on
// a closed channel.
func (c *Client) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// close shuts the outbound queue exactly once, ending the write pump.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) sendEvent(eventType string, payload any) {
	data, err := json.Marshal(domain.NewEvent(eventType, payload))
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *Client) sendError(reason string) {
	c.sendEvent(domain.EventError, domain.ErrorPayload{Reason: reason})
}

// readPump reads events off the websocket and dispatches them on this
// goroutine, one per connection. Store calls made during dispatch may
// block here without holding any shared lock. A panic in any handler is
// recovered here and costs only this connection.
func (c *Client) readPump() {
	defer func() {
		if r := recover(); r != nil {
			c.hub.log.Error().Interface("panic", r).Str("conn", c.ID).Msg("connection handler panic")
		}
		c.hub.dropClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	for {
		var event domain.Event
		if err := c.conn.ReadJSON(&event); err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		c.hub.dispatch(c, event)
	}
}

// writePump drains the send channel into the websocket. The channel is
// closed by the hub on teardown.
func (c *Client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
