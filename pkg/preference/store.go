package preference

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a user has no stored preference record.
// Callers treat this as "use defaults", not as a failure.
var ErrNotFound = errors.New("preference not found")

// Store handles preference persistence and retrieval.
type Store interface {
	// Get retrieves the preference record for a user. Returns ErrNotFound
	// when the user never customized anything.
	Get(ctx context.Context, userID string) (*Preference, error)

	// Upsert stores or replaces a user's preference record.
	Upsert(ctx context.Context, p Preference) error
}

// MemoryStore implements Store in memory for testing and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	prefs map[string]*Preference
}

// NewMemoryStore creates an empty in-memory preference store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefs: make(map[string]*Preference)}
}

// Get implements Store.
func (ms *MemoryStore) Get(ctx context.Context, userID string) (*Preference, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	p, ok := ms.prefs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	prefCopy := *p
	return &prefCopy, nil
}

// Upsert implements Store.
func (ms *MemoryStore) Upsert(ctx context.Context, p Preference) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	p.UpdatedAt = time.Now()
	prefCopy := p
	ms.prefs[p.UserID] = &prefCopy
	return nil
}
