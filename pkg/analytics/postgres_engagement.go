package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresEngagementRecorder implements EngagementRecorder on PostgreSQL.
// Events are append-only; distinct counting happens at query time so a
// provider retrying the same webhook never inflates open or click counts.
type PostgresEngagementRecorder struct {
	pool *pgxpool.Pool
}

// NewPostgresEngagementRecorder creates a recorder over an existing pool.
func NewPostgresEngagementRecorder(pool *pgxpool.Pool) (*PostgresEngagementRecorder, error) {
	if pool == nil {
		return nil, errors.New("analytics: nil pool")
	}
	return &PostgresEngagementRecorder{pool: pool}, nil
}

// Record implements EngagementRecorder.
func (pr *PostgresEngagementRecorder) Record(ctx context.Context, e Engagement) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	_, err := pr.pool.Exec(ctx, `
		INSERT INTO engagement_events (id, notification_id, template_id, kind, occurred_at)
		VALUES ($1,$2,$3,$4,$5)`,
		uuid.New(), e.NotificationID, e.TemplateID, string(e.Kind), e.At,
	)
	if err != nil {
		return fmt.Errorf("failed to insert engagement event for %s: %w", e.NotificationID, err)
	}
	return nil
}

// CountDistinct implements EngagementRecorder.
func (pr *PostgresEngagementRecorder) CountDistinct(ctx context.Context, templateID string, kind EngagementKind, day time.Time) (int, error) {
	dayStart := Day(day)
	dayEnd := dayStart.Add(24 * time.Hour)

	var count int
	err := pr.pool.QueryRow(ctx, `
		SELECT count(DISTINCT notification_id)
		FROM engagement_events
		WHERE template_id = $1 AND kind = $2
		  AND occurred_at >= $3 AND occurred_at < $4`,
		templateID, string(kind), dayStart, dayEnd,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s events for template %s: %w", kind, templateID, err)
	}
	return count, nil
}
