// Package chatclient holds the client side of the protocol: the
// websocket session and the conversation state that reconciles the
// optimistic local message list with the server's acknowledged history.
package chatclient

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"relaychat/internal/domain"
)

// Entry statuses for optimistic messages.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// Entry is one message in the local ordered sequence. Optimistic entries
// start pending under their client token and are mutated in place once
// the acknowledgment arrives.
type Entry struct {
	domain.Message
	Status string
}

// Conversation maintains the local view of the open room: the ordered
// entry list, backward pagination state, and unread counters for rooms
// that are not open. Safe for use from the read-pump and UI goroutines.
type Conversation struct {
	mu            sync.Mutex
	room          string
	entries       []Entry
	unread        map[string]int
	loadingOlder  bool
	noMoreHistory bool
}

// NewConversation creates the local view for the given room.
func NewConversation(room string) *Conversation {
	return &Conversation{room: room, unread: make(map[string]int)}
}

// Room returns the currently open room.
func (c *Conversation) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// SendIntent appends a pending optimistic entry at the tail and returns
// its client token. The caller issues the actual send afterwards; the
// local insert never waits on the network.
func (c *Conversation) SendIntent(sender, text, fileURL string) string {
	token := uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, Entry{
		Message: domain.Message{
			ClientToken: token,
			Room:        c.room,
			Sender:      sender,
			Text:        text,
			FileURL:     fileURL,
			CreatedAt:   time.Now(),
		},
		Status: StatusPending,
	})
	return token
}

// ApplyAck transitions the pending entry with the ack's client token in
// place. Delivered acks confirm the entry and adopt the server id; error
// acks fail it. Acks for unknown tokens or entries no longer pending
// (already failed by timeout) are discarded.
func (c *Conversation) ApplyAck(ack domain.AckPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if c.entries[i].ClientToken != ack.ClientToken {
			continue
		}
		if c.entries[i].Status != StatusPending {
			return
		}
		if ack.Status == domain.AckDelivered {
			c.entries[i].ID = ack.ServerID
			c.entries[i].Status = StatusConfirmed
		} else {
			c.entries[i].Status = StatusFailed
		}
		return
	}
}

// Fail marks a still-pending entry failed, used on ack timeout. The entry
// stays visible for a user-initiated resend.
func (c *Conversation) Fail(clientToken string) {
	c.ApplyAck(domain.AckPayload{Status: domain.AckError, ClientToken: clientToken})
}

// ApplyBroadcast folds a room broadcast into the local state. Messages
// for the open room are appended unless an entry with the same client
// token already exists (our own send echoing back); messages for other
// rooms only bump that room's unread counter.
func (c *Conversation) ApplyBroadcast(msg domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.Room != c.room {
		c.unread[msg.Room]++
		return
	}
	if msg.ClientToken != "" {
		for i := range c.entries {
			if c.entries[i].ClientToken == msg.ClientToken {
				return
			}
		}
	}
	c.entries = append(c.entries, Entry{Message: msg, Status: StatusConfirmed})
}

// BeginLoadOlder starts a backward pagination request and returns the
// cursor (the oldest entry's timestamp and id, nil when the sequence is
// empty). It reports false while a previous load is outstanding or
// history is exhausted, so overlapping calls cannot prepend the same
// page twice.
func (c *Conversation) BeginLoadOlder() (*domain.PageCursor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadingOlder || c.noMoreHistory {
		return nil, false
	}
	c.loadingOlder = true
	if len(c.entries) == 0 {
		return nil, true
	}
	oldest := c.entries[0]
	return &domain.PageCursor{CreatedAt: oldest.CreatedAt, ID: oldest.ID}, true
}

// CompleteLoadOlder prepends one fetched page, oldest first, and latches
// "no more history" on an empty page.
func (c *Conversation) CompleteLoadOlder(msgs []domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadingOlder = false
	if len(msgs) == 0 {
		c.noMoreHistory = true
		return
	}
	older := make([]Entry, len(msgs))
	for i, m := range msgs {
		older[i] = Entry{Message: m, Status: StatusConfirmed}
	}
	c.entries = append(older, c.entries...)
}

// AbortLoadOlder clears the outstanding-load flag after a failed request.
func (c *Conversation) AbortLoadOlder() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadingOlder = false
}

// SwitchRoom clears the sequence, pagination state and the new room's
// unread counter. The caller follows up with a fresh unbounded history
// load.
func (c *Conversation) SwitchRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = room
	c.entries = nil
	c.loadingOlder = false
	c.noMoreHistory = false
	delete(c.unread, room)
}

// Entries returns a snapshot of the local ordered sequence.
func (c *Conversation) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry(nil), c.entries...)
}

// Unread returns the unread counter for a room.
func (c *Conversation) Unread(room string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread[room]
}
