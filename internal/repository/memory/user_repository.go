package memory

import (
	"sync"

	"github.com/google/uuid"

	"relaychat/internal/domain"
)

// UserRepository keeps accounts in memory. It backs development mode when
// no POSTGRES_URL is configured, and the handler tests.
type UserRepository struct {
	mu     sync.RWMutex
	byName map[string]domain.User
}

// NewUserRepository creates an empty in-memory user repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{byName: make(map[string]domain.User)}
}

// CreateUser stores a new user.
func (r *UserRepository) CreateUser(user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[user.Username] = *user
	return nil
}

// GetUserByUsername returns a user, or nil when not found.
func (r *UserRepository) GetUserByUsername(username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if user, ok := r.byName[username]; ok {
		return &user, nil
	}
	return nil, nil
}

// GetUserByID returns a user by id, or nil when not found.
func (r *UserRepository) GetUserByID(id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.byName {
		if user.ID == id {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}
