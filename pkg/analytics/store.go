package analytics

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when no stats row exists for a (template, date).
var ErrNotFound = errors.New("analytics row not found")

// Store persists daily stats keyed by (template, date).
type Store interface {
	// Upsert stores or replaces the row for the stats' (template, date).
	Upsert(ctx context.Context, stats DailyStats) error

	// Get retrieves the row for a template and day.
	Get(ctx context.Context, templateID string, day time.Time) (*DailyStats, error)

	// List returns rows for a template between from and to inclusive,
	// oldest first.
	List(ctx context.Context, templateID string, from, to time.Time) ([]DailyStats, error)
}

// MemoryStore implements Store in memory for testing and local development.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]DailyStats
}

// NewMemoryStore creates an empty in-memory stats store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]DailyStats)}
}

func statsKey(templateID string, day time.Time) string {
	return templateID + "|" + Day(day).Format(time.DateOnly)
}

// Upsert implements Store.
func (ms *MemoryStore) Upsert(ctx context.Context, stats DailyStats) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	stats.Date = Day(stats.Date)
	ms.rows[statsKey(stats.TemplateID, stats.Date)] = stats
	return nil
}

// Get implements Store.
func (ms *MemoryStore) Get(ctx context.Context, templateID string, day time.Time) (*DailyStats, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	row, ok := ms.rows[statsKey(templateID, day)]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

// List implements Store.
func (ms *MemoryStore) List(ctx context.Context, templateID string, from, to time.Time) ([]DailyStats, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	fromDay, toDay := Day(from), Day(to)
	var rows []DailyStats
	for _, row := range ms.rows {
		if row.TemplateID != templateID {
			continue
		}
		if row.Date.Before(fromDay) || row.Date.After(toDay) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
	return rows, nil
}
