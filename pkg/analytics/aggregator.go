package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/civicflow/notifier/pkg/dispatch"
)

// DeliverySource reads delivery outcomes; the dispatch query repository
// satisfies it.
type DeliverySource interface {
	OutcomeCounts(ctx context.Context, templateID string, day time.Time) (dispatch.OutcomeCounts, error)
}

// TemplateLister enumerates template ids for full-day recomputes; the
// template store satisfies it indirectly via ListTemplateIDs adapters, and
// tests supply a literal.
type TemplateLister interface {
	TemplateIDs(ctx context.Context) ([]string, error)
}

// TemplateListerFunc adapts a function to TemplateLister.
type TemplateListerFunc func(ctx context.Context) ([]string, error)

func (f TemplateListerFunc) TemplateIDs(ctx context.Context) ([]string, error) {
	return f(ctx)
}

// Aggregator recomputes daily stats from the delivery ledger and engagement
// events.
type Aggregator struct {
	source     DeliverySource
	engagement EngagementRecorder
	store      Store
	logger     *slog.Logger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithAggregatorLogger sets the logger.
func WithAggregatorLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAggregator creates an aggregator.
func NewAggregator(source DeliverySource, engagement EngagementRecorder, store Store, opts ...AggregatorOption) (*Aggregator, error) {
	if source == nil {
		return nil, fmt.Errorf("delivery source cannot be nil")
	}
	if engagement == nil {
		return nil, fmt.Errorf("engagement recorder cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("stats store cannot be nil")
	}

	a := &Aggregator{
		source:     source,
		engagement: engagement,
		store:      store,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Recompute rebuilds the stats row for one template and day from the source
// data and upserts it. Running it twice for the same arguments produces the
// same row.
func (a *Aggregator) Recompute(ctx context.Context, templateID string, day time.Time) (*DailyStats, error) {
	day = Day(day)

	outcomes, err := a.source.OutcomeCounts(ctx, templateID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to read outcomes for template %s: %w", templateID, err)
	}

	opened, err := a.engagement.CountDistinct(ctx, templateID, EngagementOpen, day)
	if err != nil {
		return nil, fmt.Errorf("failed to count opens for template %s: %w", templateID, err)
	}
	clicked, err := a.engagement.CountDistinct(ctx, templateID, EngagementClick, day)
	if err != nil {
		return nil, fmt.Errorf("failed to count clicks for template %s: %w", templateID, err)
	}

	stats := DailyStats{
		TemplateID: templateID,
		Date:       day,
		Sent:       outcomes.Sent,
		Delivered:  outcomes.Delivered,
		Failed:     outcomes.Failed,
		Opened:     opened,
		Clicked:    clicked,
		ComputedAt: time.Now(),
	}
	stats.deriveRates()

	if err := a.store.Upsert(ctx, stats); err != nil {
		return nil, fmt.Errorf("failed to upsert stats for template %s: %w", templateID, err)
	}
	return &stats, nil
}

// RecomputeAll rebuilds stats for every known template for the given day.
// Per-template failures are logged and do not stop the sweep.
func (a *Aggregator) RecomputeAll(ctx context.Context, templates TemplateLister, day time.Time) error {
	ids, err := templates.TemplateIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}

	for _, id := range ids {
		if _, err := a.Recompute(ctx, id, day); err != nil {
			a.logger.LogAttrs(ctx, slog.LevelError, "failed to recompute daily stats",
				slog.String("template_id", id),
				slog.Time("day", Day(day)),
				slog.Any("error", err))
		}
	}
	return nil
}
