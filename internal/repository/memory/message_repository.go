// Package memory provides an in-process message store with the same
// contract as the Mongo repository. It backs development mode when no
// MONGO_URL is configured, and the coordinator tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"relaychat/internal/domain"
	mongorepo "relaychat/internal/repository/mongo"
)

// MessageRepository keeps per-room message logs in memory, preserving
// append order.
type MessageRepository struct {
	mu    sync.Mutex
	rooms map[string][]domain.Message
	last  time.Time
}

// NewMessageRepository creates an empty in-memory store.
func NewMessageRepository() *MessageRepository {
	return &MessageRepository{rooms: make(map[string][]domain.Message)}
}

// Append validates and stores a message, assigning its id and a strictly
// increasing timestamp so that "before" cursors split pages exactly.
func (r *MessageRepository) Append(ctx context.Context, room, sender, text, fileURL, clientToken string) (*domain.Message, error) {
	if err := domain.ValidateMessageInput(room, text, fileURL); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if !now.After(r.last) {
		now = r.last.Add(time.Nanosecond)
	}
	r.last = now

	msg := domain.Message{
		ID:          uuid.NewString(),
		ClientToken: clientToken,
		Room:        room,
		Sender:      sender,
		Text:        text,
		FileURL:     fileURL,
		CreatedAt:   now,
	}
	r.rooms[room] = append(r.rooms[room], msg)
	return &msg, nil
}

// Page returns up to limit messages in the room older than the cursor
// (unbounded when nil), oldest to newest.
func (r *MessageRepository) Page(ctx context.Context, room string, before *domain.PageCursor, limit int64) ([]domain.Message, error) {
	if limit <= 0 {
		limit = mongorepo.DefaultPageLimit
	}
	if limit > mongorepo.MaxPageLimit+1 {
		limit = mongorepo.MaxPageLimit + 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	log := r.rooms[room]

	// Walk back to the newest message older than the cursor. Append's
	// monotonic timestamps make ties impossible here; the id tiebreak
	// only matters for externally seeded rows.
	end := len(log)
	if before != nil {
		for end > 0 && !olderThan(log[end-1], before) {
			end--
		}
	}
	start := end - int(limit)
	if start < 0 {
		start = 0
	}
	return append([]domain.Message(nil), log[start:end]...), nil
}

func olderThan(m domain.Message, c *domain.PageCursor) bool {
	if m.CreatedAt.Before(c.CreatedAt) {
		return true
	}
	return c.ID != "" && m.CreatedAt.Equal(c.CreatedAt) && m.ID < c.ID
}
