package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/google/uuid"

	"github.com/civicflow/notifier/pkg/template"
)

// PostgresStorage implements Storage on PostgreSQL. Claiming uses
// FOR UPDATE SKIP LOCKED inside a single statement, so any number of worker
// instances can poll the same table without double-sending.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a dispatch storage over an existing pool.
func NewPostgresStorage(pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, ErrStorageNil
	}
	return &PostgresStorage{pool: pool}, nil
}

const notificationColumns = `
	id, rule_id, template_id, user_id, channel, address,
	subject, body, html_body, status, scheduled_at, sent_at,
	retry_count, last_error, locked_until, locked_by, context, created_at`

// CreateNotification implements EnqueueRepository.
func (ps *PostgresStorage) CreateNotification(ctx context.Context, n *QueuedNotification) error {
	if n.Status == "" {
		n.Status = StatusPending
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	contextJSON, err := json.Marshal(n.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal notification context: %w", err)
	}

	_, err = ps.pool.Exec(ctx, `
		INSERT INTO notifications (
			id, rule_id, template_id, user_id, channel, address,
			subject, body, html_body, status, scheduled_at,
			retry_count, context, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		n.ID, n.RuleID, n.TemplateID, n.UserID, string(n.Channel), n.Address,
		n.Subject, n.Body, n.HTMLBody, string(n.Status), n.ScheduledAt,
		n.RetryCount, contextJSON, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification %s: %w", n.ID, err)
	}
	return nil
}

// CancelPending implements EnqueueRepository.
func (ps *PostgresStorage) CancelPending(ctx context.Context, ruleID string) (int, error) {
	tag, err := ps.pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE rule_id = $1 AND status = 'pending'`, ruleID)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel pending notifications for rule %s: %w", ruleID, err)
	}
	return int(tag.RowsAffected()), nil
}

// ClaimBatch implements WorkerRepository.
func (ps *PostgresStorage) ClaimBatch(ctx context.Context, workerID uuid.UUID, limit int, lockDuration time.Duration) ([]QueuedNotification, error) {
	rows, err := ps.pool.Query(ctx, `
		UPDATE notifications SET
			status = 'processing',
			locked_until = now() + $1,
			locked_by = $2
		WHERE id IN (
			SELECT id FROM notifications
			WHERE status = 'pending' AND scheduled_at <= now()
			ORDER BY scheduled_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+notificationColumns,
		lockDuration, workerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim notification batch: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// MarkSent implements WorkerRepository.
func (ps *PostgresStorage) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	tag, err := ps.pool.Exec(ctx, `
		UPDATE notifications SET
			status = 'sent',
			sent_at = $2,
			locked_until = NULL,
			locked_by = NULL
		WHERE id = $1 AND status = 'processing'`, id, sentAt)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s sent: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotProcessing
	}
	return nil
}

// Fail implements WorkerRepository. The retry decision happens in SQL so the
// increment, the status transition, and the backoff schedule are one atomic
// statement.
func (ps *PostgresStorage) Fail(ctx context.Context, id uuid.UUID, errMsg string, permanent bool) error {
	tag, err := ps.pool.Exec(ctx, `
		UPDATE notifications SET
			retry_count = retry_count + 1,
			last_error = $2,
			locked_until = NULL,
			locked_by = NULL,
			status = CASE
				WHEN $3 OR retry_count + 1 >= $4 THEN 'failed'
				ELSE 'pending'
			END,
			scheduled_at = CASE
				WHEN $3 OR retry_count + 1 >= $4 THEN scheduled_at
				ELSE now() + least((retry_count + 1) * interval '5 minutes', interval '30 minutes')
			END
		WHERE id = $1 AND status = 'processing'`,
		id, errMsg, permanent, MaxRetries)
	if err != nil {
		return fmt.Errorf("failed to record failure for notification %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotProcessing
	}
	return nil
}

// RecordAttempt implements WorkerRepository.
func (ps *PostgresStorage) RecordAttempt(ctx context.Context, attempt DeliveryAttempt) error {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.Timestamp.IsZero() {
		attempt.Timestamp = time.Now()
	}

	_, err := ps.pool.Exec(ctx, `
		INSERT INTO delivery_attempts (
			id, notification_id, attempt_number, attempted_at,
			provider_name, success, error_code, error_message, response_time_ms
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		attempt.ID, attempt.NotificationID, attempt.AttemptNumber, attempt.Timestamp,
		attempt.ProviderName, attempt.Success, attempt.ErrorCode, attempt.ErrorMessage,
		attempt.ResponseTimeMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert delivery attempt for %s: %w", attempt.NotificationID, err)
	}
	return nil
}

// ReapStale implements WorkerRepository.
func (ps *PostgresStorage) ReapStale(ctx context.Context) (int, error) {
	tag, err := ps.pool.Exec(ctx, `
		UPDATE notifications SET
			status = 'pending',
			locked_until = NULL,
			locked_by = NULL
		WHERE status = 'processing' AND locked_until < now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to reap stale claims: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// GetNotification implements QueryRepository.
func (ps *PostgresStorage) GetNotification(ctx context.Context, id uuid.UUID) (*QueuedNotification, error) {
	rows, err := ps.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query notification %s: %w", id, err)
	}
	defer rows.Close()

	notifs, err := scanNotifications(rows)
	if err != nil {
		return nil, err
	}
	if len(notifs) == 0 {
		return nil, ErrNotFound
	}
	return &notifs[0], nil
}

// ListByStatus implements QueryRepository.
func (ps *PostgresStorage) ListByStatus(ctx context.Context, status Status, limit int) ([]QueuedNotification, error) {
	rows, err := ps.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE status = $1 ORDER BY created_at DESC LIMIT $2`,
		string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications by status %s: %w", status, err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// ListAttempts implements QueryRepository.
func (ps *PostgresStorage) ListAttempts(ctx context.Context, notificationID uuid.UUID) ([]DeliveryAttempt, error) {
	rows, err := ps.pool.Query(ctx, `
		SELECT id, notification_id, attempt_number, attempted_at,
		       provider_name, success, error_code, error_message, response_time_ms
		FROM delivery_attempts
		WHERE notification_id = $1
		ORDER BY attempt_number`, notificationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts for %s: %w", notificationID, err)
	}
	defer rows.Close()

	var attempts []DeliveryAttempt
	for rows.Next() {
		var a DeliveryAttempt
		if err := rows.Scan(&a.ID, &a.NotificationID, &a.AttemptNumber, &a.Timestamp,
			&a.ProviderName, &a.Success, &a.ErrorCode, &a.ErrorMessage, &a.ResponseTimeMs); err != nil {
			return nil, fmt.Errorf("failed to scan delivery attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// OutcomeCounts implements QueryRepository.
func (ps *PostgresStorage) OutcomeCounts(ctx context.Context, templateID string, day time.Time) (OutcomeCounts, error) {
	dayStart := day.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	var counts OutcomeCounts
	err := ps.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE attempted),
			count(*) FILTER (WHERE delivered),
			count(*) FILTER (WHERE attempted AND NOT delivered AND status = 'failed')
		FROM (
			SELECT n.id, n.status,
				bool_or(a.id IS NOT NULL) AS attempted,
				bool_or(coalesce(a.success, false)) AS delivered
			FROM notifications n
			LEFT JOIN delivery_attempts a
				ON a.notification_id = n.id
				AND a.attempted_at >= $2 AND a.attempted_at < $3
			WHERE n.template_id = $1
			GROUP BY n.id, n.status
		) t`,
		templateID, dayStart, dayEnd,
	).Scan(&counts.Sent, &counts.Delivered, &counts.Failed)
	if err != nil {
		return OutcomeCounts{}, fmt.Errorf("failed to compute outcome counts: %w", err)
	}
	return counts, nil
}

// scanNotifications reads queued notification rows.
func scanNotifications(rows pgx.Rows) ([]QueuedNotification, error) {
	var notifs []QueuedNotification
	for rows.Next() {
		var (
			n           QueuedNotification
			channelStr  string
			statusStr   string
			contextJSON []byte
		)
		if err := rows.Scan(
			&n.ID, &n.RuleID, &n.TemplateID, &n.UserID, &channelStr, &n.Address,
			&n.Subject, &n.Body, &n.HTMLBody, &statusStr, &n.ScheduledAt, &n.SentAt,
			&n.RetryCount, &n.LastError, &n.LockedUntil, &n.LockedBy, &contextJSON, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Channel = template.Channel(channelStr)
		n.Status = Status(statusStr)
		if len(contextJSON) > 0 {
			if err := json.Unmarshal(contextJSON, &n.Context); err != nil {
				return nil, fmt.Errorf("failed to unmarshal notification context: %w", err)
			}
		}
		notifs = append(notifs, n)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return notifs, nil
}
