package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/civicflow/notifier/pkg/analytics"
	"github.com/civicflow/notifier/pkg/template"
)

// nightlyAnalytics recomputes the previous day's per-template stats shortly
// after each UTC midnight. Recompute is idempotent, so a restart that causes
// the job to run twice for the same day is harmless.
func (e *Engine) nightlyAnalytics(ctx context.Context) {
	for {
		wait := untilNextRun(time.Now().UTC(), e.analyticsAt)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		day := analytics.Day(time.Now().UTC().AddDate(0, 0, -1))
		if err := e.deps.Aggregator.RecomputeAll(ctx, templateLister(e.deps.Templates), day); err != nil {
			e.logger.Error("nightly analytics rollup failed",
				slog.Time("day", day),
				slog.Any("error", err))
			continue
		}
		e.logger.Info("nightly analytics rollup complete", slog.Time("day", day))
	}
}

// untilNextRun returns the duration from now until the next UTC midnight
// plus the configured offset.
func untilNextRun(now time.Time, offset time.Duration) time.Duration {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	next := midnight.Add(offset)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

func templateLister(store template.Store) analytics.TemplateListerFunc {
	return func(ctx context.Context) ([]string, error) {
		tmpls, err := store.List(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(tmpls))
		for _, t := range tmpls {
			ids = append(ids, t.ID)
		}
		return ids, nil
	}
}
