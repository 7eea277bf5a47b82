// Package hub contains the messaging coordinator: it tracks live
// connections and their room and presence state, routes messages to the
// right subscriber set, and acknowledges delivery back to the sender.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"relaychat/internal/domain"
	mongorepo "relaychat/internal/repository/mongo"
	"relaychat/internal/service"
)

// Hub coordinates connect, identify, join, send, typing and disconnect
// events across all live connections. Events are handled on each
// connection's own read goroutine; the presence registry and the room
// index carry their own locks, and no lock is ever held across a store
// call.
type Hub struct {
	presence *Presence
	rooms    *Rooms
	store    service.IMessageStore
	log      zerolog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a coordinator backed by the given message store.
func NewHub(store service.IMessageStore, log zerolog.Logger) *Hub {
	return &Hub{
		presence: NewPresence(),
		rooms:    NewRooms(),
		store:    store,
		log:      log,
		clients:  make(map[string]*Client),
	}
}

// ServeConn adopts an upgraded websocket connection and runs its pumps.
// The connection is invisible to presence until it identifies.
func (h *Hub) ServeConn(conn *websocket.Conn) {
	c := newClient(h, conn)
	h.addClient(c)
	go c.writePump()
	go c.readPump()
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.log.Debug().Str("conn", c.ID).Msg("connection opened")
}

// dropClient tears a connection down. Safe to call more than once; a
// connection that never identified produces no visible side effect.
func (h *Hub) dropClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	h.mu.Unlock()
	c.close()

	room, _ := h.presence.Room(c.ID)
	if room != "" {
		h.rooms.Unsubscribe(room, c.ID)
	}

	name, identified := h.presence.Remove(c.ID)
	if !identified {
		h.log.Debug().Str("conn", c.ID).Msg("unidentified connection closed")
		return
	}

	h.broadcastAll(domain.EventPresenceLeft, domain.PresenceEventPayload{Username: name})
	h.broadcastAll(domain.EventPresenceChanged, domain.PresenceChangedPayload{Users: h.presence.Names()})
	h.log.Info().Str("conn", c.ID).Str("user", name).Msg("disconnected")
}

// dispatch decodes one inbound event and applies it. Any panic or error
// stays confined to this connection.
func (h *Hub) dispatch(c *Client, event domain.Event) {
	switch event.Type {
	case domain.EventIdentify:
		var p domain.IdentifyPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("invalid identify payload")
			return
		}
		h.handleIdentify(c, p)
	case domain.EventJoin:
		var p domain.JoinPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("invalid join payload")
			return
		}
		h.handleJoin(c, p.Room)
	case domain.EventLeave:
		var p domain.LeavePayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("invalid leave payload")
			return
		}
		h.handleLeave(c, p.Room)
	case domain.EventSend:
		var p domain.SendPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("invalid send payload")
			return
		}
		h.handleSend(c, p)
	case domain.EventTyping, domain.EventStopTyping:
		var p domain.TypingPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return // best-effort, no error reply
		}
		h.handleTyping(c, event.Type, p)
	case domain.EventHistory:
		var p domain.HistoryRequestPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("invalid history payload")
			return
		}
		h.handleHistory(c, p)
	case domain.EventReconnect:
		var p domain.ReconnectPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("invalid reconnect payload")
			return
		}
		h.handleReconnect(c, p.Username)
	case domain.EventPrivateMessage:
		var p domain.PrivateMessagePayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("invalid private message payload")
			return
		}
		h.handlePrivateMessage(c, p)
	default:
		c.sendError("unknown event type: " + event.Type)
	}
}

// handleIdentify enters the Connected state: the connection becomes
// visible to presence under the supplied display name. On a name
// collision the newest connection wins the reverse mapping.
func (h *Hub) handleIdentify(c *Client, p domain.IdentifyPayload) {
	if p.Username == "" {
		return
	}
	h.presence.Register(c.ID, p.Username)
	h.broadcastAll(domain.EventPresenceJoined, domain.PresenceEventPayload{Username: p.Username})
	h.broadcastAll(domain.EventPresenceChanged, domain.PresenceChangedPayload{Users: h.presence.Names()})
	h.log.Info().Str("conn", c.ID).Str("user", p.Username).Msg("identified")
}

// handleJoin subscribes an identified connection to a room, leaving the
// previous room first. A join before identify is a recoverable caller
// mistake and is dropped silently.
func (h *Hub) handleJoin(c *Client, room string) {
	if room == "" {
		return
	}
	name, ok := h.presence.Name(c.ID)
	if !ok {
		h.log.Debug().Str("conn", c.ID).Str("room", room).Msg("join before identify ignored")
		return
	}

	if prev, _ := h.presence.Room(c.ID); prev != "" && prev != room {
		h.rooms.Unsubscribe(prev, c.ID)
		h.publish(prev, domain.EventPresenceLeft, domain.PresenceEventPayload{Username: name, Room: prev}, "")
	}

	h.rooms.Subscribe(room, c)
	h.presence.SetRoom(c.ID, room)
	h.publish(room, domain.EventPresenceJoined, domain.PresenceEventPayload{Username: name, Room: room}, "")
	h.log.Info().Str("user", name).Str("room", room).Msg("joined room")
}

func (h *Hub) handleLeave(c *Client, room string) {
	name, ok := h.presence.Name(c.ID)
	if !ok {
		return
	}
	if current, _ := h.presence.Room(c.ID); current != room {
		return
	}
	h.rooms.Unsubscribe(room, c.ID)
	h.presence.SetRoom(c.ID, "")
	h.publish(room, domain.EventPresenceLeft, domain.PresenceEventPayload{Username: name, Room: room}, "")
}

// handleSend persists the message, fans it out to the room, and acks the
// sender. Failures are acked to the sender only and never broadcast; the
// coordinator does not retry, so at most one durable write happens per
// send.
func (h *Hub) handleSend(c *Client, p domain.SendPayload) {
	sender, _ := h.presence.Name(c.ID)
	if sender == "" {
		c.sendEvent(domain.EventAck, domain.AckPayload{
			Status:      domain.AckError,
			ClientToken: p.ClientToken,
			Reason:      "identify before sending",
		})
		return
	}

	msg, err := h.store.Append(context.Background(), p.Room, sender, p.Text, p.FileURL, p.ClientToken)
	if err != nil {
		if !domain.IsValidation(err) {
			h.log.Error().Err(err).Str("room", p.Room).Str("user", sender).Msg("message persist failed")
		}
		c.sendEvent(domain.EventAck, domain.AckPayload{
			Status:      domain.AckError,
			ClientToken: p.ClientToken,
			Reason:      err.Error(),
		})
		return
	}

	h.publish(msg.Room, domain.EventRoomMessage, msg, "")
	c.sendEvent(domain.EventAck, domain.AckPayload{
		Status:      domain.AckDelivered,
		ServerID:    msg.ID,
		ClientToken: p.ClientToken,
	})
}

// handleTyping fans the indicator out to the room, excluding the sender.
// Pure best-effort: nothing is persisted or acknowledged.
func (h *Hub) handleTyping(c *Client, eventType string, p domain.TypingPayload) {
	if p.Room == "" {
		return
	}
	h.publish(p.Room, eventType, p, c.ID)
}

func (h *Hub) handleHistory(c *Client, p domain.HistoryRequestPayload) {
	messages, err := h.store.Page(context.Background(), p.Room, p.Before, mongorepo.ClampLimit(p.Limit))
	if err != nil {
		h.log.Error().Err(err).Str("room", p.Room).Msg("history page failed")
		c.sendError("failed to load history")
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	c.sendEvent(domain.EventHistory, domain.HistoryPayload{Room: p.Room, Messages: messages})
}

// handleReconnect re-associates a fresh connection with an existing
// display name. Missed history is recovered by pagination, not replay.
func (h *Hub) handleReconnect(c *Client, username string) {
	if username == "" {
		return
	}
	if h.presence.Claim(username, c.ID) {
		h.log.Info().Str("conn", c.ID).Str("user", username).Msg("reconnect claim")
		return
	}
	// An unknown name on reconnect degrades to a plain identify.
	h.handleIdentify(c, domain.IdentifyPayload{Username: username})
}

// handlePrivateMessage routes a direct message to the current holder of
// the target display name. Never persisted; dropped if the target is
// offline.
func (h *Hub) handlePrivateMessage(c *Client, p domain.PrivateMessagePayload) {
	sender, ok := h.presence.Name(c.ID)
	if !ok || p.To == "" || p.Text == "" {
		return
	}
	targetID, ok := h.presence.Lookup(p.To)
	if !ok {
		return
	}
	h.mu.RLock()
	target := h.clients[targetID]
	h.mu.RUnlock()
	if target == nil {
		return
	}
	target.sendEvent(domain.EventPrivateMessage, domain.PrivateMessagePayload{
		Sender:    sender,
		Text:      p.Text,
		Timestamp: time.Now().UTC(),
	})
}

// publish marshals an event once and fans it out to a room.
func (h *Hub) publish(room, eventType string, payload any, exceptID string) {
	data, err := json.Marshal(domain.NewEvent(eventType, payload))
	if err != nil {
		return
	}
	h.rooms.Publish(room, data, exceptID)
}

// broadcastAll delivers an event to every live connection, identified or
// not. Used for the global presence surface.
func (h *Hub) broadcastAll(eventType string, payload any) {
	data, err := json.Marshal(domain.NewEvent(eventType, payload))
	if err != nil {
		return
	}
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.enqueue(data)
	}
}
