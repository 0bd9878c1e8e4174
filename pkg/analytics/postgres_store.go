package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on PostgreSQL. The (template_id, date)
// primary key makes Upsert a plain ON CONFLICT update, which is what keeps
// nightly recomputation idempotent.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates an analytics store over an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("analytics: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// Upsert implements Store.
func (ps *PostgresStore) Upsert(ctx context.Context, stats DailyStats) error {
	stats.Date = Day(stats.Date)

	_, err := ps.pool.Exec(ctx, `
		INSERT INTO daily_analytics (
			template_id, date, sent, delivered, failed, opened, clicked,
			delivery_rate, open_rate, click_rate, computed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (template_id, date) DO UPDATE SET
			sent = EXCLUDED.sent,
			delivered = EXCLUDED.delivered,
			failed = EXCLUDED.failed,
			opened = EXCLUDED.opened,
			clicked = EXCLUDED.clicked,
			delivery_rate = EXCLUDED.delivery_rate,
			open_rate = EXCLUDED.open_rate,
			click_rate = EXCLUDED.click_rate,
			computed_at = EXCLUDED.computed_at`,
		stats.TemplateID, stats.Date, stats.Sent, stats.Delivered, stats.Failed,
		stats.Opened, stats.Clicked, stats.DeliveryRate, stats.OpenRate,
		stats.ClickRate, stats.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily stats for template %s: %w", stats.TemplateID, err)
	}
	return nil
}

// Get implements Store.
func (ps *PostgresStore) Get(ctx context.Context, templateID string, day time.Time) (*DailyStats, error) {
	row := ps.pool.QueryRow(ctx, `
		SELECT template_id, date, sent, delivered, failed, opened, clicked,
		       delivery_rate, open_rate, click_rate, computed_at
		FROM daily_analytics
		WHERE template_id = $1 AND date = $2`,
		templateID, Day(day))

	stats, err := scanDailyStats(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query daily stats for template %s: %w", templateID, err)
	}
	return stats, nil
}

// List implements Store.
func (ps *PostgresStore) List(ctx context.Context, templateID string, from, to time.Time) ([]DailyStats, error) {
	rows, err := ps.pool.Query(ctx, `
		SELECT template_id, date, sent, delivered, failed, opened, clicked,
		       delivery_rate, open_rate, click_rate, computed_at
		FROM daily_analytics
		WHERE template_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date`,
		templateID, Day(from), Day(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list daily stats for template %s: %w", templateID, err)
	}
	defer rows.Close()

	var out []DailyStats
	for rows.Next() {
		stats, err := scanDailyStats(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily stats row: %w", err)
		}
		out = append(out, *stats)
	}
	return out, rows.Err()
}

func scanDailyStats(row pgx.Row) (*DailyStats, error) {
	var s DailyStats
	if err := row.Scan(
		&s.TemplateID, &s.Date, &s.Sent, &s.Delivered, &s.Failed,
		&s.Opened, &s.Clicked, &s.DeliveryRate, &s.OpenRate, &s.ClickRate,
		&s.ComputedAt,
	); err != nil {
		return nil, err
	}
	s.Date = s.Date.UTC()
	return &s, nil
}
