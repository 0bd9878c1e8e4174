package template

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in memory for testing and local development.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewMemoryStore creates an empty in-memory template store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{templates: make(map[string]*Template)}
}

// Create implements Store.
func (ms *MemoryStore) Create(ctx context.Context, t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.templates[t.ID]; exists {
		return ErrAlreadyExists
	}

	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	tmplCopy := t
	ms.templates[t.ID] = &tmplCopy
	return nil
}

// Update implements Store.
func (ms *MemoryStore) Update(ctx context.Context, t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	existing, exists := ms.templates[t.ID]
	if !exists {
		return ErrNotFound
	}

	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now()

	tmplCopy := t
	ms.templates[t.ID] = &tmplCopy
	return nil
}

// Get implements Store.
func (ms *MemoryStore) Get(ctx context.Context, id string) (*Template, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	t, exists := ms.templates[id]
	if !exists {
		return nil, ErrNotFound
	}

	tmplCopy := *t
	return &tmplCopy, nil
}

// List implements Store.
func (ms *MemoryStore) List(ctx context.Context) ([]Template, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	templates := make([]Template, 0, len(ms.templates))
	for _, t := range ms.templates {
		templates = append(templates, *t)
	}
	return templates, nil
}
