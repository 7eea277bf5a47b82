package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"relaychat/internal/domain"
)

const messageCollection = "messages"

// Page limits. Requests above the cap are clamped server-side.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// messageDoc is the stored shape of a message. The _id stays an ObjectID
// in the collection and is exposed as its hex form on domain.Message.
type messageDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	ClientToken string             `bson:"client_token,omitempty"`
	Room        string             `bson:"room"`
	Sender      string             `bson:"sender"`
	Text        string             `bson:"text,omitempty"`
	FileURL     string             `bson:"file_url,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
}

// MessageRepository is the durable, queryable log of messages per room.
type MessageRepository struct {
	DB *mongo.Database
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{DB: db}
}

// Append validates and persists a single message. One InsertOne call
// keeps the write all-or-nothing.
func (r *MessageRepository) Append(ctx context.Context, room, sender, text, fileURL, clientToken string) (*domain.Message, error) {
	if err := domain.ValidateMessageInput(room, text, fileURL); err != nil {
		return nil, err
	}

	doc := messageDoc{
		ID:          primitive.NewObjectID(),
		ClientToken: clientToken,
		Room:        room,
		Sender:      sender,
		Text:        text,
		FileURL:     fileURL,
		CreatedAt:   time.Now().UTC(),
	}

	collection := r.DB.Collection(messageCollection)
	if _, err := collection.InsertOne(ctx, doc); err != nil {
		return nil, &domain.StorageError{Op: "append", Err: err}
	}

	return doc.toDomain(), nil
}

// Page returns up to limit messages in the room older than the cursor
// (unbounded when nil), oldest to newest. The newest matching rows are
// selected first and reversed, so the result is ready to prepend to a
// client's view.
func (r *MessageRepository) Page(ctx context.Context, room string, before *domain.PageCursor, limit int64) ([]domain.Message, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	// One row past the cap is allowed so callers can probe whether older
	// history remains beyond a full page.
	if limit > MaxPageLimit+1 {
		limit = MaxPageLimit + 1
	}

	filter := bson.M{"room": room}
	if before != nil {
		// created_at is millisecond-granular, so rows sharing the cursor's
		// timestamp are kept and split by _id instead of being skipped.
		if oid, err := primitive.ObjectIDFromHex(before.ID); err == nil {
			filter["$or"] = bson.A{
				bson.M{"created_at": bson.M{"$lt": before.CreatedAt}},
				bson.M{"created_at": before.CreatedAt, "_id": bson.M{"$lt": oid}},
			}
		} else {
			filter["created_at"] = bson.M{"$lt": before.CreatedAt}
		}
	}

	// _id breaks ties between equal timestamps, preserving insert order.
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	collection := r.DB.Collection(messageCollection)
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, &domain.StorageError{Op: "page", Err: err}
	}
	defer cursor.Close(ctx)

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, &domain.StorageError{Op: "page", Err: err}
	}

	// Reverse for chronological order (oldest first).
	messages := make([]domain.Message, len(docs))
	for i, doc := range docs {
		messages[len(docs)-1-i] = *doc.toDomain()
	}
	return messages, nil
}

func (d *messageDoc) toDomain() *domain.Message {
	return &domain.Message{
		ID:          d.ID.Hex(),
		ClientToken: d.ClientToken,
		Room:        d.Room,
		Sender:      d.Sender,
		Text:        d.Text,
		FileURL:     d.FileURL,
		CreatedAt:   d.CreatedAt,
	}
}

// ClampLimit applies the default and maximum page sizes.
func ClampLimit(limit int64) int64 {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}
