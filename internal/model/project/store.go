package project

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("project not found")

// Store exposes project persistence.
type Store interface {
	Create(ctx context.Context, p Project) error
	FindByID(ctx context.Context, id string) (Project, error)
	List(ctx context.Context) ([]Project, error)
	Update(ctx context.Context, id string, upd Update) (Project, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore implements Store with an in-memory map.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Project
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Project)}
}

func (s *MemoryStore) Create(_ context.Context, p Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.ID] = p
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Project, 0, len(s.items))
	for _, p := range s.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, upd Update) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	s.items[id] = p
	return p, nil
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
