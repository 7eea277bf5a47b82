package domain

import "time"

// Message represents a single chat message in a room. Messages are
// immutable once persisted; the store assigns ID and CreatedAt.
type Message struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	ClientToken string    `bson:"client_token,omitempty" json:"clientToken,omitempty"`
	Room        string    `bson:"room" json:"room"`
	Sender      string    `bson:"sender" json:"sender"`
	Text        string    `bson:"text,omitempty" json:"text,omitempty"`
	FileURL     string    `bson:"file_url,omitempty" json:"fileUrl,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
}

// PageCursor marks the oldest message a client already holds. ID breaks
// ties between messages sharing a timestamp, so backward pagination
// never skips a row at a page boundary.
type PageCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id,omitempty"`
}

// ValidateMessageInput checks the invariants every store must enforce
// before persisting: a target room, and at least one of text or file.
func ValidateMessageInput(room, text, fileURL string) error {
	if room == "" {
		return &ValidationError{Reason: "room is required"}
	}
	if text == "" && fileURL == "" {
		return &ValidationError{Reason: "message needs text or a file"}
	}
	return nil
}
