package service

import (
	"context"

	"github.com/google/uuid"

	"relaychat/internal/domain"
)

// --- Service Interfaces ---

// IUserService defines the interface for account business logic.
type IUserService interface {
	Register(username, password string) (*domain.User, string, error)
	Login(username, password string) (*domain.User, string, error)
}

// --- Repository Interfaces ---

// IMessageStore defines the interface for the durable message log.
type IMessageStore interface {
	// Append validates, persists and returns the full message. The write
	// is all-or-nothing. Fails with *domain.ValidationError or
	// *domain.StorageError.
	Append(ctx context.Context, room, sender, text, fileURL, clientToken string) (*domain.Message, error)
	// Page returns up to limit messages in room older than the cursor
	// (unbounded when nil), ordered oldest to newest. The cursor's ID
	// breaks timestamp ties so consecutive pages never overlap or skip.
	Page(ctx context.Context, room string, before *domain.PageCursor, limit int64) ([]domain.Message, error)
}

// IUserRepository defines the interface for user persistence.
type IUserRepository interface {
	CreateUser(user *domain.User) error
	GetUserByUsername(username string) (*domain.User, error)
	GetUserByID(id uuid.UUID) (*domain.User, error)
}
