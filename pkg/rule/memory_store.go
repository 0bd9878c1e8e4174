package rule

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/civicflow/notifier/pkg/event"
)

// MemoryStore implements Store in memory for testing and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	rules map[string]*Rule

	// byTrigger indexes rule ids per trigger event for dispatch-path lookups
	byTrigger map[event.Type][]string
}

// NewMemoryStore creates an empty in-memory rule store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules:     make(map[string]*Rule),
		byTrigger: make(map[event.Type][]string),
	}
}

// Create implements Store.
func (ms *MemoryStore) Create(ctx context.Context, r Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.rules[r.ID]; exists {
		return ErrAlreadyExists
	}

	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now

	ruleCopy := r
	ms.rules[r.ID] = &ruleCopy
	ms.byTrigger[r.TriggerEvent] = append(ms.byTrigger[r.TriggerEvent], r.ID)

	return nil
}

// Update implements Store.
func (ms *MemoryStore) Update(ctx context.Context, r Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	existing, exists := ms.rules[r.ID]
	if !exists {
		return ErrNotFound
	}

	if existing.TriggerEvent != r.TriggerEvent {
		ms.byTrigger[existing.TriggerEvent] = slices.DeleteFunc(
			ms.byTrigger[existing.TriggerEvent],
			func(id string) bool { return id == r.ID },
		)
		ms.byTrigger[r.TriggerEvent] = append(ms.byTrigger[r.TriggerEvent], r.ID)
	}

	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now()

	ruleCopy := r
	ms.rules[r.ID] = &ruleCopy

	return nil
}

// Get implements Store.
func (ms *MemoryStore) Get(ctx context.Context, id string) (*Rule, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	r, exists := ms.rules[id]
	if !exists {
		return nil, ErrNotFound
	}

	ruleCopy := *r
	return &ruleCopy, nil
}

// ListByTrigger implements Store.
func (ms *MemoryStore) ListByTrigger(ctx context.Context, t event.Type) ([]Rule, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	ids := ms.byTrigger[t]
	rules := make([]Rule, 0, len(ids))
	for _, id := range ids {
		if r, ok := ms.rules[id]; ok {
			rules = append(rules, *r)
		}
	}
	return rules, nil
}

// List implements Store.
func (ms *MemoryStore) List(ctx context.Context) ([]Rule, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	rules := make([]Rule, 0, len(ms.rules))
	for _, r := range ms.rules {
		rules = append(rules, *r)
	}
	return rules, nil
}
