package reset

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrCodeNotFound = errors.New("invalid reset code")
	ErrCodeExpired  = errors.New("reset code expired")
)

// CodeStore persists emailed reset codes. Consume atomically looks up an
// unused, matching code for the user and marks it used; it returns
// ErrCodeNotFound for unknown codes and ErrCodeExpired for stale ones.
// TTL-backed implementations may report expired codes as not found.
type CodeStore interface {
	Save(ctx context.Context, c Code) error
	Consume(ctx context.Context, userID, code string) (Code, error)
}

// RequestStore persists admin-mediated reset requests.
type RequestStore interface {
	Create(ctx context.Context, r Request) error
	ListPending(ctx context.Context) ([]Request, error)
	CompleteForUser(ctx context.Context, userID string) error
}

// MemoryCodeStore implements CodeStore in memory.
type MemoryCodeStore struct {
	mu    sync.Mutex
	items map[string]Code
}

// NewMemoryCodeStore returns an empty MemoryCodeStore.
func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{items: make(map[string]Code)}
}

func (s *MemoryCodeStore) Save(_ context.Context, c Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[c.ID] = c
	return nil
}

func (s *MemoryCodeStore) Consume(_ context.Context, userID, code string) (Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.items {
		if c.UserID != userID || c.Code != code || c.Used {
			continue
		}
		if time.Now().UTC().After(c.ExpiresAt) {
			return Code{}, ErrCodeExpired
		}
		c.Used = true
		s.items[id] = c
		return c, nil
	}
	return Code{}, ErrCodeNotFound
}

// MemoryRequestStore implements RequestStore in memory.
type MemoryRequestStore struct {
	mu    sync.Mutex
	items []Request
}

// NewMemoryRequestStore returns an empty MemoryRequestStore.
func NewMemoryRequestStore() *MemoryRequestStore {
	return &MemoryRequestStore{}
}

func (s *MemoryRequestStore) Create(_ context.Context, r Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, r)
	return nil
}

func (s *MemoryRequestStore) ListPending(_ context.Context) ([]Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, 0)
	for _, r := range s.items {
		if r.Status == StatusPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryRequestStore) CompleteForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for i, r := range s.items {
		if r.UserID == userID && r.Status == StatusPending {
			r.Status = StatusCompleted
			r.CompletedAt = &now
			s.items[i] = r
		}
	}
	return nil
}
