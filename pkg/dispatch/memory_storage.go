package dispatch

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements Storage in memory for testing and single-process
// deployments.
type MemoryStorage struct {
	mu            sync.Mutex
	notifications map[uuid.UUID]*QueuedNotification
	attempts      map[uuid.UUID][]DeliveryAttempt

	// byStatus indexes notification ids per status
	byStatus map[Status][]uuid.UUID
}

// NewMemoryStorage creates an empty in-memory dispatch storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		notifications: make(map[uuid.UUID]*QueuedNotification),
		attempts:      make(map[uuid.UUID][]DeliveryAttempt),
		byStatus:      make(map[Status][]uuid.UUID),
	}
}

// CreateNotification implements EnqueueRepository.
func (ms *MemoryStorage) CreateNotification(ctx context.Context, n *QueuedNotification) error {
	if n == nil {
		return ErrNotFound
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.notifications[n.ID]; exists {
		return ErrAlreadyExists
	}

	if n.Status == "" {
		n.Status = StatusPending
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	notifCopy := *n
	ms.notifications[n.ID] = &notifCopy
	ms.byStatus[notifCopy.Status] = append(ms.byStatus[notifCopy.Status], n.ID)
	return nil
}

// CancelPending implements EnqueueRepository.
func (ms *MemoryStorage) CancelPending(ctx context.Context, ruleID string) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	cancelled := 0
	for _, id := range slices.Clone(ms.byStatus[StatusPending]) {
		n := ms.notifications[id]
		if n.RuleID == nil || *n.RuleID != ruleID {
			continue
		}
		ms.removeFromStatusIndex(id, StatusPending)
		delete(ms.notifications, id)
		delete(ms.attempts, id)
		cancelled++
	}
	return cancelled, nil
}

// ClaimBatch implements WorkerRepository.
func (ms *MemoryStorage) ClaimBatch(ctx context.Context, workerID uuid.UUID, limit int, lockDuration time.Duration) ([]QueuedNotification, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()

	// Collect due pending rows ordered by scheduled time.
	var due []*QueuedNotification
	for _, id := range ms.byStatus[StatusPending] {
		n := ms.notifications[id]
		if n.ScheduledAt.After(now) {
			continue
		}
		due = append(due, n)
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].ScheduledAt.Before(due[j].ScheduledAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	lockUntil := now.Add(lockDuration)
	claimed := make([]QueuedNotification, 0, len(due))
	for _, n := range due {
		n.Status = StatusProcessing
		n.LockedUntil = &lockUntil
		n.LockedBy = &workerID
		ms.removeFromStatusIndex(n.ID, StatusPending)
		ms.byStatus[StatusProcessing] = append(ms.byStatus[StatusProcessing], n.ID)
		claimed = append(claimed, *n)
	}
	return claimed, nil
}

// MarkSent implements WorkerRepository.
func (ms *MemoryStorage) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	n, exists := ms.notifications[id]
	if !exists {
		return ErrNotFound
	}
	if n.Status != StatusProcessing {
		return ErrNotProcessing
	}

	n.Status = StatusSent
	n.SentAt = &sentAt
	n.LockedUntil = nil
	n.LockedBy = nil

	ms.removeFromStatusIndex(id, StatusProcessing)
	ms.byStatus[StatusSent] = append(ms.byStatus[StatusSent], id)
	return nil
}

// Fail implements WorkerRepository.
func (ms *MemoryStorage) Fail(ctx context.Context, id uuid.UUID, errMsg string, permanent bool) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	n, exists := ms.notifications[id]
	if !exists {
		return ErrNotFound
	}
	if n.Status != StatusProcessing {
		return ErrNotProcessing
	}

	n.RetryCount++
	n.LastError = &errMsg
	n.LockedUntil = nil
	n.LockedBy = nil
	ms.removeFromStatusIndex(id, StatusProcessing)

	if permanent || n.RetryCount >= MaxRetries {
		n.Status = StatusFailed
		ms.byStatus[StatusFailed] = append(ms.byStatus[StatusFailed], id)
		return nil
	}

	n.Status = StatusPending
	n.ScheduledAt = time.Now().Add(Backoff(n.RetryCount))
	ms.byStatus[StatusPending] = append(ms.byStatus[StatusPending], id)
	return nil
}

// RecordAttempt implements WorkerRepository.
func (ms *MemoryStorage) RecordAttempt(ctx context.Context, attempt DeliveryAttempt) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.Timestamp.IsZero() {
		attempt.Timestamp = time.Now()
	}
	ms.attempts[attempt.NotificationID] = append(ms.attempts[attempt.NotificationID], attempt)
	return nil
}

// ReapStale implements WorkerRepository. Reaped rows keep their retry count:
// an expired claim is a crashed worker, not a delivery failure.
func (ms *MemoryStorage) ReapStale(ctx context.Context) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	reaped := 0
	for _, id := range slices.Clone(ms.byStatus[StatusProcessing]) {
		n := ms.notifications[id]
		if n.LockedUntil == nil || n.LockedUntil.After(now) {
			continue
		}
		n.Status = StatusPending
		n.LockedUntil = nil
		n.LockedBy = nil
		ms.removeFromStatusIndex(id, StatusProcessing)
		ms.byStatus[StatusPending] = append(ms.byStatus[StatusPending], id)
		reaped++
	}
	return reaped, nil
}

// GetNotification implements QueryRepository.
func (ms *MemoryStorage) GetNotification(ctx context.Context, id uuid.UUID) (*QueuedNotification, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	n, exists := ms.notifications[id]
	if !exists {
		return nil, ErrNotFound
	}
	notifCopy := *n
	return &notifCopy, nil
}

// ListByStatus implements QueryRepository.
func (ms *MemoryStorage) ListByStatus(ctx context.Context, status Status, limit int) ([]QueuedNotification, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	out := make([]QueuedNotification, 0, len(ms.byStatus[status]))
	for _, id := range ms.byStatus[status] {
		out = append(out, *ms.notifications[id])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListAttempts implements QueryRepository.
func (ms *MemoryStorage) ListAttempts(ctx context.Context, notificationID uuid.UUID) ([]DeliveryAttempt, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	attempts := slices.Clone(ms.attempts[notificationID])
	sort.Slice(attempts, func(i, j int) bool {
		return attempts[i].AttemptNumber < attempts[j].AttemptNumber
	})
	return attempts, nil
}

// OutcomeCounts implements QueryRepository.
func (ms *MemoryStorage) OutcomeCounts(ctx context.Context, templateID string, day time.Time) (OutcomeCounts, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	dayStart := day.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)
	inDay := func(t time.Time) bool {
		t = t.UTC()
		return !t.Before(dayStart) && t.Before(dayEnd)
	}

	var counts OutcomeCounts
	for id, n := range ms.notifications {
		if n.TemplateID != templateID {
			continue
		}

		var attempted, delivered bool
		var lastAttempt time.Time
		for _, a := range ms.attempts[id] {
			if !inDay(a.Timestamp) {
				continue
			}
			attempted = true
			if a.Success {
				delivered = true
			}
			if a.Timestamp.After(lastAttempt) {
				lastAttempt = a.Timestamp
			}
		}

		if attempted {
			counts.Sent++
		}
		if delivered {
			counts.Delivered++
		}
		if n.Status == StatusFailed && attempted && !delivered {
			counts.Failed++
		}
	}
	return counts, nil
}

func (ms *MemoryStorage) removeFromStatusIndex(id uuid.UUID, status Status) {
	ms.byStatus[status] = slices.DeleteFunc(ms.byStatus[status], func(other uuid.UUID) bool {
		return other == id
	})
}
