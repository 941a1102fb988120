package chat

import (
	"context"
	"sync"
)

// MessageStore persists chat history. Recent returns at most limit
// messages ordered newest first; callers reverse for replay.
type MessageStore interface {
	Append(ctx context.Context, m Message) error
	Recent(ctx context.Context, limit int) ([]Message, error)
}

// MemoryStore implements MessageStore with an in-memory slice.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Message
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, m)
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.items)
	if limit > n {
		limit = n
	}
	out := make([]Message, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.items[i])
	}
	return out, nil
}
