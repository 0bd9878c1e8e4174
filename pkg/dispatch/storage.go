package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EnqueueRepository defines the interface for notification creation and
// pre-dispatch cancellation.
type EnqueueRepository interface {
	// CreateNotification persists a new pending notification.
	CreateNotification(ctx context.Context, n *QueuedNotification) error

	// CancelPending removes pending notifications created by a rule, used
	// when the rule is deactivated. Rows already processing run to
	// completion. Returns the number of cancelled rows.
	CancelPending(ctx context.Context, ruleID string) (int, error)
}

// WorkerRepository defines the interface the worker pool dispatches through.
type WorkerRepository interface {
	// ClaimBatch atomically transitions up to limit due pending
	// notifications to processing, locked by workerID for lockDuration,
	// ordered by scheduled time. The conditional transition is what lets
	// multiple worker instances share one storage without double-sending.
	ClaimBatch(ctx context.Context, workerID uuid.UUID, limit int, lockDuration time.Duration) ([]QueuedNotification, error)

	// MarkSent completes a processing notification.
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error

	// Fail records a failed attempt on a processing notification. Unless
	// permanent, the row returns to pending with a backoff schedule while
	// retries remain; otherwise it is terminally failed.
	Fail(ctx context.Context, id uuid.UUID, errMsg string, permanent bool) error

	// RecordAttempt appends a row to the delivery ledger.
	RecordAttempt(ctx context.Context, attempt DeliveryAttempt) error

	// ReapStale returns processing notifications whose claim lock expired
	// back to pending, without consuming retry budget. This is the
	// backstop for crashed workers. Returns the number of reaped rows.
	ReapStale(ctx context.Context) (int, error)
}

// QueryRepository defines read access for operators and the analytics
// aggregator.
type QueryRepository interface {
	// GetNotification retrieves a notification by id.
	GetNotification(ctx context.Context, id uuid.UUID) (*QueuedNotification, error)

	// ListByStatus returns up to limit notifications in the given status,
	// newest first.
	ListByStatus(ctx context.Context, status Status, limit int) ([]QueuedNotification, error)

	// ListAttempts returns the ledger rows for a notification in attempt
	// order.
	ListAttempts(ctx context.Context, notificationID uuid.UUID) ([]DeliveryAttempt, error)

	// OutcomeCounts summarizes a template's outcomes for the UTC day
	// containing the given time.
	OutcomeCounts(ctx context.Context, templateID string, day time.Time) (OutcomeCounts, error)
}

// Storage combines all dispatch persistence concerns.
type Storage interface {
	EnqueueRepository
	WorkerRepository
	QueryRepository
}
