package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"supportchat/internal/model"
	"supportchat/internal/repository"
)

// UserStore keeps accounts in process memory. Usernames and emails are
// unique ignoring case, matching the case-insensitive unique indexes of the
// users table.
type UserStore struct {
	mu     sync.RWMutex
	nextID uint
	byID   map[uint]model.User
}

func NewUserStore() *UserStore {
	return &UserStore{byID: make(map[uint]model.User)}
}

func (s *UserStore) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byID {
		if strings.EqualFold(existing.Username, user.Username) || strings.EqualFold(existing.Email, user.Email) {
			return fmt.Errorf("create user failed: %w", repository.ErrDuplicateKey)
		}
	}

	s.nextID++
	now := time.Now()
	user.ID = s.nextID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	s.byID[user.ID] = *user
	return nil
}

func (s *UserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return s.find(func(u model.User) bool { return strings.EqualFold(u.Username, username) }), nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return s.find(func(u model.User) bool { return strings.EqualFold(u.Email, email) }), nil
}

func (s *UserStore) GetByID(_ context.Context, id uint) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (s *UserStore) find(match func(model.User) bool) *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.byID {
		if match(user) {
			found := user
			return &found
		}
	}
	return nil
}
