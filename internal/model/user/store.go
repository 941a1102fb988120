package user

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already registered")
	ErrEmailTaken    = errors.New("email already registered")
)

// Store exposes account persistence for services and handlers.
type Store interface {
	Create(ctx context.Context, u User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByUsernameOrEmail(ctx context.Context, value string) (User, error)
	List(ctx context.Context) ([]User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateRole(ctx context.Context, id, role string) error
}

// MemoryStore implements Store with an in-memory map, suitable for tests
// and running without a database.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]User
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]User)}
}

func (s *MemoryStore) Create(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.Username == u.Username {
			return ErrUsernameTaken
		}
		if u.Email != "" && existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	s.items[u.ID] = u
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.items[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) FindByUsername(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.items {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *MemoryStore) FindByUsernameOrEmail(_ context.Context, value string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.items {
		if u.Username == value || (u.Email != "" && u.Email == value) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *MemoryStore) List(_ context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.items))
	for _, u := range s.items {
		out = append(out, u)
	}
	return out, nil
}

func (s *MemoryStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	s.items[id] = u
	return nil
}

func (s *MemoryStore) UpdateRole(_ context.Context, id, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	s.items[id] = u
	return nil
}
