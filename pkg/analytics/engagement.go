package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EngagementKind distinguishes open and click tracking events.
type EngagementKind string

const (
	EngagementOpen  EngagementKind = "open"
	EngagementClick EngagementKind = "click"
)

// Engagement is one tracking event reported by a provider webhook.
type Engagement struct {
	NotificationID uuid.UUID      `json:"notification_id"`
	TemplateID     string         `json:"template_id"`
	Kind           EngagementKind `json:"kind"`
	At             time.Time      `json:"at"`
}

// EngagementRecorder ingests and counts tracking events.
type EngagementRecorder interface {
	// Record stores one engagement event.
	Record(ctx context.Context, e Engagement) error

	// CountDistinct returns how many distinct notifications of the
	// template had an event of the kind on the given UTC day.
	CountDistinct(ctx context.Context, templateID string, kind EngagementKind, day time.Time) (int, error)
}

// MemoryEngagementRecorder implements EngagementRecorder in memory.
type MemoryEngagementRecorder struct {
	mu     sync.RWMutex
	events []Engagement
}

// NewMemoryEngagementRecorder creates an empty in-memory recorder.
func NewMemoryEngagementRecorder() *MemoryEngagementRecorder {
	return &MemoryEngagementRecorder{}
}

// Record implements EngagementRecorder.
func (mr *MemoryEngagementRecorder) Record(ctx context.Context, e Engagement) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	if e.At.IsZero() {
		e.At = time.Now()
	}
	mr.events = append(mr.events, e)
	return nil
}

// CountDistinct implements EngagementRecorder.
func (mr *MemoryEngagementRecorder) CountDistinct(ctx context.Context, templateID string, kind EngagementKind, day time.Time) (int, error) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	target := Day(day)
	seen := make(map[uuid.UUID]struct{})
	for _, e := range mr.events {
		if e.TemplateID != templateID || e.Kind != kind || !Day(e.At).Equal(target) {
			continue
		}
		seen[e.NotificationID] = struct{}{}
	}
	return len(seen), nil
}
