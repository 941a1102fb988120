package file

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrNotFound = errors.New("file not found")

// Store exposes file persistence.
type Store interface {
	Create(ctx context.Context, f File) error
	FindByID(ctx context.Context, id string) (File, error)
	ListByProject(ctx context.Context, projectID string) ([]File, error)
	Update(ctx context.Context, id string, upd Update) (File, error)
	Delete(ctx context.Context, id string) error
	DeleteByProject(ctx context.Context, projectID string) error
}

// MemoryStore implements Store with an in-memory map.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]File
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]File)}
}

func (s *MemoryStore) Create(_ context.Context, f File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[f.ID] = f
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.items[id]
	if !ok {
		return File{}, ErrNotFound
	}
	return f, nil
}

func (s *MemoryStore) ListByProject(_ context.Context, projectID string) ([]File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]File, 0)
	for _, f := range s.items {
		if f.ProjectID == projectID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, upd Update) (File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.items[id]
	if !ok {
		return File{}, ErrNotFound
	}
	if upd.Name != nil {
		f.Name = *upd.Name
	}
	if upd.Content != nil {
		f.Content = *upd.Content
	}
	f.UpdatedAt = time.Now().UTC()
	s.items[id] = f
	return f, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) DeleteByProject(_ context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, f := range s.items {
		if f.ProjectID == projectID {
			delete(s.items, id)
		}
	}
	return nil
}
