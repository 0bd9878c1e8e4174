package inbox

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage implements Storage in memory for testing and local
// development.
type MemoryStorage struct {
	mu     sync.RWMutex
	byUser map[string][]*Message
}

// NewMemoryStorage creates an empty in-memory inbox.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{byUser: make(map[string][]*Message)}
}

// Create implements Storage.
func (ms *MemoryStorage) Create(ctx context.Context, msg Message) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	msgCopy := msg
	ms.byUser[msg.UserID] = append(ms.byUser[msg.UserID], &msgCopy)
	return nil
}

// Get implements Storage.
func (ms *MemoryStorage) Get(ctx context.Context, userID, msgID string) (*Message, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, m := range ms.byUser[userID] {
		if m.ID == msgID {
			msgCopy := *m
			return &msgCopy, nil
		}
	}
	return nil, ErrNotFound
}

// List implements Storage.
func (ms *MemoryStorage) List(ctx context.Context, userID string, opts ListOptions) ([]Message, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	msgs := make([]Message, 0, len(ms.byUser[userID]))
	for _, m := range ms.byUser[userID] {
		if opts.OnlyUnread && m.Read {
			continue
		}
		msgs = append(msgs, *m)
	}

	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(msgs) {
			return []Message{}, nil
		}
		msgs = msgs[opts.Offset:]
	}
	if opts.Limit > 0 && len(msgs) > opts.Limit {
		msgs = msgs[:opts.Limit]
	}
	return msgs, nil
}

// MarkRead implements Storage.
func (ms *MemoryStorage) MarkRead(ctx context.Context, userID string, msgIDs ...string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ids := make(map[string]struct{}, len(msgIDs))
	for _, id := range msgIDs {
		ids[id] = struct{}{}
	}

	for _, m := range ms.byUser[userID] {
		if _, ok := ids[m.ID]; ok && !m.Read {
			m.MarkAsRead()
		}
	}
	return nil
}

// CountUnread implements Storage.
func (ms *MemoryStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	count := 0
	for _, m := range ms.byUser[userID] {
		if !m.Read {
			count++
		}
	}
	return count, nil
}
