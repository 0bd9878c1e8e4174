package dispatch

import (
	"time"

	"github.com/google/uuid"

	"github.com/civicflow/notifier/pkg/template"
)

// MaxRetries is the retry budget: a notification that fails this many times
// is terminally failed.
const MaxRetries = 3

// Status is the lifecycle state of a queued notification.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

// QueuedNotification is one rendered message owned by the dispatch pipeline
// until it reaches a terminal state. The rendered subject and body are
// snapshotted at enqueue time, so template edits never alter queued rows, and
// Context preserves the event payload used for rendering for replay and
// debugging.
type QueuedNotification struct {
	ID          uuid.UUID         `json:"id"`
	RuleID      *string           `json:"rule_id,omitempty"` // nil for ad-hoc sends
	TemplateID  string            `json:"template_id"`
	UserID      string            `json:"user_id"`
	Channel     template.Channel  `json:"channel"`
	Address     string            `json:"address"`
	Subject     string            `json:"subject,omitempty"`
	Body        string            `json:"body"`
	HTMLBody    string            `json:"html_body,omitempty"`
	Status      Status            `json:"status"`
	ScheduledAt time.Time         `json:"scheduled_at"`
	SentAt      *time.Time        `json:"sent_at,omitempty"`
	RetryCount  int               `json:"retry_count"`
	LastError   *string           `json:"last_error,omitempty"`
	LockedUntil *time.Time        `json:"locked_until,omitempty"`
	LockedBy    *uuid.UUID        `json:"locked_by,omitempty"`
	Context     map[string]string `json:"context,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// DeliveryAttempt is one append-only ledger row per send attempt. Rows are
// never mutated after insert.
type DeliveryAttempt struct {
	ID             uuid.UUID `json:"id"`
	NotificationID uuid.UUID `json:"notification_id"`
	AttemptNumber  int       `json:"attempt_number"`
	Timestamp      time.Time `json:"timestamp"`
	ProviderName   string    `json:"provider_name"`
	Success        bool      `json:"success"`
	ErrorCode      string    `json:"error_code,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	ResponseTimeMs int64     `json:"response_time_ms"`
}

// OutcomeCounts summarizes one template's delivery outcomes for one day; the
// analytics aggregator reads these from storage.
type OutcomeCounts struct {
	Sent      int // notifications with at least one attempt that day
	Delivered int // notifications with a successful attempt that day
	Failed    int // notifications that reached terminal failure that day
}
