package domain

import (
	"encoding/json"
	"time"
)

// Event is the envelope for every frame on the websocket. The payload is
// decoded exactly once, at the boundary, into the fixed struct for its
// type.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Wire event types.
const (
	EventIdentify       = "identify"
	EventJoin           = "join"
	EventLeave          = "leave"
	EventSend           = "send"
	EventTyping         = "typing"
	EventStopTyping     = "stopTyping"
	EventHistory        = "history"
	EventReconnect      = "reconnect"
	EventPrivateMessage = "privateMessage"

	EventAck             = "ack"
	EventRoomMessage     = "roomMessage"
	EventPresenceChanged = "presenceChanged"
	EventPresenceJoined  = "presenceJoined"
	EventPresenceLeft    = "presenceLeft"
	EventError           = "error"
)

// Ack statuses.
const (
	AckDelivered = "delivered"
	AckError     = "error"
)

// NewEvent marshals payload into an Event envelope. A payload that fails
// to marshal is a programming error, so the envelope is returned with an
// empty payload rather than an error.
func NewEvent(eventType string, payload any) Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{Type: eventType}
	}
	return Event{Type: eventType, Payload: raw}
}

// IdentifyPayload announces the connection's display name.
type IdentifyPayload struct {
	Username string `json:"username"`
}

// JoinPayload subscribes the connection to a room.
type JoinPayload struct {
	Room string `json:"room"`
}

// LeavePayload unsubscribes the connection from a room.
type LeavePayload struct {
	Room string `json:"room"`
}

// SendPayload carries an outgoing message together with the sender's
// correlation token.
type SendPayload struct {
	Room        string `json:"room"`
	Text        string `json:"text,omitempty"`
	FileURL     string `json:"fileUrl,omitempty"`
	ClientToken string `json:"clientToken"`
}

// AckPayload is the per-send delivery receipt, returned to the sender
// only. ServerID is set when Status is "delivered", Reason when it is
// "error".
type AckPayload struct {
	Status      string `json:"status"`
	ServerID    string `json:"serverId,omitempty"`
	ClientToken string `json:"clientToken"`
	Reason      string `json:"reason,omitempty"`
}

// TypingPayload is the best-effort typing indicator.
type TypingPayload struct {
	Room     string `json:"room"`
	Username string `json:"username"`
}

// HistoryRequestPayload asks for a page of messages older than Before.
type HistoryRequestPayload struct {
	Room   string      `json:"room"`
	Before *PageCursor `json:"before,omitempty"`
	Limit  int64       `json:"limit,omitempty"`
}

// HistoryPayload returns a page of messages, oldest first.
type HistoryPayload struct {
	Room     string    `json:"room"`
	Messages []Message `json:"messages"`
}

// ReconnectPayload re-claims a display name after a transport drop.
type ReconnectPayload struct {
	Username string `json:"username"`
}

// PrivateMessagePayload is a live direct message, never persisted.
type PrivateMessagePayload struct {
	To        string    `json:"to,omitempty"`
	Sender    string    `json:"sender,omitempty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// PresenceChangedPayload is the full snapshot of online display names.
type PresenceChangedPayload struct {
	Users []string `json:"users"`
}

// PresenceEventPayload reports one user joining or leaving. Room is empty
// for global (connect/disconnect) events.
type PresenceEventPayload struct {
	Username string `json:"username"`
	Room     string `json:"room,omitempty"`
}

// ErrorPayload reports a request the server could not make sense of.
type ErrorPayload struct {
	Reason string `json:"reason"`
}
