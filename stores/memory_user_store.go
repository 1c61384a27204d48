package stores

import (
	"sync"
	"time"

	"github.com/google/uuid"

	na "github.com/panyam/notesauth"
)

// MemoryUserStore is an in-process UserStore keyed by email, suitable for
// development and tests. Unique-email enforcement happens under one lock.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*na.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*na.User)}
}

func (s *MemoryUserStore) UserExists(email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[na.NormalizeEmail(email)]
	return ok, nil
}

func (s *MemoryUserStore) GetUserByEmail(email string) (*na.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[na.NormalizeEmail(email)]
	if !ok {
		return nil, na.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *MemoryUserStore) CreateUser(user *na.User) (*na.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := na.NormalizeEmail(user.Email)
	if _, ok := s.users[email]; ok {
		return nil, na.ErrUserExists
	}
	now := time.Now()
	created := *user
	created.Id = uuid.NewString()
	created.Email = email
	created.CreatedAt = now
	created.UpdatedAt = now
	s.users[email] = &created
	copied := created
	return &copied, nil
}

func (s *MemoryUserStore) EnsureFederatedUser(email, name, googleId string) (*na.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = na.NormalizeEmail(email)
	now := time.Now()
	if existing, ok := s.users[email]; ok {
		if existing.GoogleId == "" {
			existing.GoogleId = googleId
			existing.UpdatedAt = now
		}
		copied := *existing
		return &copied, nil
	}
	created := &na.User{
		Id:        uuid.NewString(),
		Email:     email,
		Name:      name,
		GoogleId:  googleId,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[email] = created
	copied := *created
	return &copied, nil
}
