package chatclient

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"relaychat/internal/domain"
)

// AckTimeout bounds the wait for a send acknowledgment. An entry still
// pending when the timer fires is marked failed locally; a later ack for
// it is discarded by the conversation.
const AckTimeout = 5 * time.Second

// Client manages the websocket session and feeds the conversation
// state. Each dial gets its own connection and outbound queue, so a
// dying session's pumps can never consume the next session's events.
type Client struct {
	Username     string
	Conversation *Conversation

	mu     sync.Mutex
	conn   *websocket.Conn
	send   chan domain.Event
	timers map[string]*time.Timer // client token -> ack timer

	// Notify receives display lines for the UI. Defaults to stdout.
	Notify func(line string)
}

// NewClient creates a client for the given user, starting in room.
func NewClient(username, room string) *Client {
	return &Client{
		Username:     username,
		Conversation: NewConversation(room),
		timers:       make(map[string]*time.Timer),
		Notify: func(line string) {
			fmt.Printf("\r%s\n> ", line)
		},
	}
}

// Connect dials the server, identifies, joins the starting room and
// requests the initial history page.
func (c *Client) Connect(serverURL string) error {
	if err := c.dial(serverURL); err != nil {
		return err
	}
	c.emit(domain.EventIdentify, domain.IdentifyPayload{Username: c.Username})
	c.emit(domain.EventJoin, domain.JoinPayload{Room: c.Conversation.Room()})
	c.loadInitialHistory()
	return nil
}

// dial ends the previous session, opens a fresh connection with a fresh
// outbound queue and starts its pumps.
func (c *Client) dial(serverURL string) error {
	u, err := url.Parse(serverURL)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close() // ends the old session's pumps
	}
	c.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}

	send := make(chan domain.Event, 256)
	c.mu.Lock()
	c.conn = conn
	c.send = send
	c.mu.Unlock()

	go c.readPump(conn)
	go c.writePump(conn, send)
	return nil
}

// Close tears the session down.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.send != nil {
		close(c.send)
		c.send = nil
	}
	return nil
}

// emit queues an event for the current session's writer. Dropped when
// the session is closed or the queue is full.
func (c *Client) emit(eventType string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.send == nil {
		return
	}
	select {
	case c.send <- domain.NewEvent(eventType, payload):
	default:
	}
}

// Send inserts the optimistic entry and issues the send, arming the ack
// timer. Returns the entry's client token.
func (c *Client) Send(text, fileURL string) string {
	token := c.Conversation.SendIntent(c.Username, text, fileURL)
	c.emit(domain.EventSend, domain.SendPayload{
		Room:        c.Conversation.Room(),
		Text:        text,
		FileURL:     fileURL,
		ClientToken: token,
	})

	c.mu.Lock()
	c.timers[token] = time.AfterFunc(AckTimeout, func() {
		c.Conversation.Fail(token)
		c.Notify("[!] message not acknowledged, marked failed")
		c.mu.Lock()
		delete(c.timers, token)
		c.mu.Unlock()
	})
	c.mu.Unlock()
	return token
}

// LoadOlder requests the page before the oldest local entry. A no-op
// while a previous load is outstanding or history is exhausted.
func (c *Client) LoadOlder() {
	before, ok := c.Conversation.BeginLoadOlder()
	if !ok {
		return
	}
	c.requestHistory(before)
}

// SwitchRoom leaves the open room, joins the new one and reloads history
// from the tail.
func (c *Client) SwitchRoom(room string) {
	if room == c.Conversation.Room() {
		return
	}
	c.emit(domain.EventLeave, domain.LeavePayload{Room: c.Conversation.Room()})
	c.Conversation.SwitchRoom(room)
	c.emit(domain.EventJoin, domain.JoinPayload{Room: room})
	c.loadInitialHistory()
}

// SendPrivate routes a direct message to a display name.
func (c *Client) SendPrivate(to, text string) {
	c.emit(domain.EventPrivateMessage, domain.PrivateMessagePayload{To: to, Text: text})
}

// Typing sends the best-effort typing indicator for the open room.
func (c *Client) Typing(stop bool) {
	eventType := domain.EventTyping
	if stop {
		eventType = domain.EventStopTyping
	}
	c.emit(eventType, domain.TypingPayload{Room: c.Conversation.Room(), Username: c.Username})
}

// Reconnect re-dials on a fresh connection and claims the display name
// again. Missed messages are recovered by pagination, not replay.
func (c *Client) Reconnect(serverURL string) error {
	if err := c.dial(serverURL); err != nil {
		return err
	}
	c.emit(domain.EventReconnect, domain.ReconnectPayload{Username: c.Username})
	c.emit(domain.EventJoin, domain.JoinPayload{Room: c.Conversation.Room()})
	return nil
}

// loadInitialHistory requests the room's newest page through the same
// single-flight gate as LoadOlder, so a user-triggered load cannot race
// the initial one and prepend overlapping history.
func (c *Client) loadInitialHistory() {
	before, ok := c.Conversation.BeginLoadOlder()
	if !ok {
		return
	}
	c.requestHistory(before)
}

func (c *Client) requestHistory(before *domain.PageCursor) {
	c.emit(domain.EventHistory, domain.HistoryRequestPayload{
		Room:   c.Conversation.Room(),
		Before: before,
	})
}

func (c *Client) readPump(conn *websocket.Conn) {
	defer conn.Close()
	for {
		var event domain.Event
		if err := conn.ReadJSON(&event); err != nil {
			c.Notify(fmt.Sprintf("[!] connection closed: %v", err))
			return
		}
		c.handleServerEvent(event)
	}
}

func (c *Client) writePump(conn *websocket.Conn, send chan domain.Event) {
	defer conn.Close()
	for event := range send {
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}

// handleServerEvent folds one server event into the conversation and
// renders a line for the UI.
func (c *Client) handleServerEvent(event domain.Event) {
	switch event.Type {
	case domain.EventAck:
		var ack domain.AckPayload
		if json.Unmarshal(event.Payload, &ack) != nil {
			return
		}
		c.mu.Lock()
		if t, ok := c.timers[ack.ClientToken]; ok {
			t.Stop()
			delete(c.timers, ack.ClientToken)
		}
		c.mu.Unlock()
		c.Conversation.ApplyAck(ack)
		if ack.Status == domain.AckError {
			c.Notify(fmt.Sprintf("[!] send failed: %s", ack.Reason))
		}

	case domain.EventRoomMessage:
		var msg domain.Message
		if json.Unmarshal(event.Payload, &msg) != nil {
			return
		}
		c.Conversation.ApplyBroadcast(msg)
		if msg.Room == c.Conversation.Room() && msg.Sender != c.Username {
			c.Notify(formatMessage(msg))
		} else if msg.Room != c.Conversation.Room() {
			c.Notify(fmt.Sprintf("[#%s] %d unread", msg.Room, c.Conversation.Unread(msg.Room)))
		}

	case domain.EventHistory:
		var page domain.HistoryPayload
		if json.Unmarshal(event.Payload, &page) != nil {
			return
		}
		if page.Room != c.Conversation.Room() {
			return
		}
		c.Conversation.CompleteLoadOlder(page.Messages)
		for _, msg := range page.Messages {
			c.Notify(formatMessage(msg))
		}

	case domain.EventPresenceChanged:
		var p domain.PresenceChangedPayload
		if json.Unmarshal(event.Payload, &p) != nil {
			return
		}
		c.Notify(fmt.Sprintf("[online] %v", p.Users))

	case domain.EventPresenceJoined, domain.EventPresenceLeft:
		var p domain.PresenceEventPayload
		if json.Unmarshal(event.Payload, &p) != nil {
			return
		}
		verb := "joined"
		if event.Type == domain.EventPresenceLeft {
			verb = "left"
		}
		if p.Room != "" {
			c.Notify(fmt.Sprintf("* %s %s #%s", p.Username, verb, p.Room))
		} else {
			c.Notify(fmt.Sprintf("* %s %s", p.Username, verb))
		}

	case domain.EventTyping:
		var p domain.TypingPayload
		if json.Unmarshal(event.Payload, &p) != nil {
			return
		}
		c.Notify(fmt.Sprintf("%s is typing...", p.Username))

	case domain.EventStopTyping:
		// Nothing to render in a line-based UI.

	case domain.EventPrivateMessage:
		var p domain.PrivateMessagePayload
		if json.Unmarshal(event.Payload, &p) != nil {
			return
		}
		c.Notify(fmt.Sprintf("[DM from %s] %s", p.Sender, p.Text))

	case domain.EventError:
		var p domain.ErrorPayload
		if json.Unmarshal(event.Payload, &p) != nil {
			return
		}
		c.Notify(fmt.Sprintf("[server error] %s", p.Reason))
	}
}

func formatMessage(msg domain.Message) string {
	body := msg.Text
	if body == "" && msg.FileURL != "" {
		body = "[file] " + msg.FileURL
	}
	return fmt.Sprintf("[%s] %s: %s", msg.CreatedAt.Local().Format("15:04:05"), msg.Sender, body)
}
