package preference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/civicflow/notifier/pkg/rule"
	"github.com/civicflow/notifier/pkg/template"
)

// Action is the outcome of filtering a (recipient, rule) pair.
type Action string

const (
	ActionSend  Action = "send"
	ActionDefer Action = "defer"
	ActionSkip  Action = "skip"
)

// SkipReason explains why a pair was skipped.
type SkipReason string

const (
	SkipChannelDisabled  SkipReason = "channel_disabled"
	SkipCategoryDisabled SkipReason = "category_disabled"
	SkipFrequencyCapped  SkipReason = "frequency_capped"
	SkipDailyCapped      SkipReason = "daily_capped"
)

// Decision is the filter verdict for one recipient.
type Decision struct {
	Action Action
	// At is the delivery time for ActionDefer decisions.
	At time.Time
	// Reason is set for ActionSkip decisions.
	Reason SkipReason
}

// Filter applies per-user preferences to dispatch decisions.
type Filter struct {
	store   Store
	limiter Limiter
	logger  *slog.Logger
	now     func() time.Time
}

// FilterOption configures a Filter.
type FilterOption func(*Filter)

// WithFilterLogger sets the logger for skip/defer decisions.
func WithFilterLogger(logger *slog.Logger) FilterOption {
	return func(f *Filter) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithClock overrides the filter's time source; used by tests to pin
// quiet-hour evaluation.
func WithClock(now func() time.Time) FilterOption {
	return func(f *Filter) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFilter creates a preference filter.
func NewFilter(store Store, limiter Limiter, opts ...FilterOption) (*Filter, error) {
	if store == nil {
		return nil, fmt.Errorf("preference store cannot be nil")
	}
	if limiter == nil {
		return nil, fmt.Errorf("limiter cannot be nil")
	}

	f := &Filter{
		store:   store,
		limiter: limiter,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Decide evaluates the pipeline for one recipient: channel opt-in, category
// opt-in, quiet hours (defer, never drop), rule frequency cap, then the
// channel daily cap. rl is nil for ad-hoc sends, which carry no frequency
// cap. Returned errors are infrastructure failures (store or limiter
// unavailable) and must abort the enqueue, not be swallowed.
func (f *Filter) Decide(ctx context.Context, userID string, rl *rule.Rule, tmpl template.Template) (Decision, error) {
	pref, err := f.store.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return Decision{}, fmt.Errorf("failed to load preferences for %s: %w", userID, err)
		}
		def := Default(userID)
		pref = &def
	}

	if !pref.ChannelEnabled(tmpl.Channel) {
		return f.skip(ctx, userID, tmpl, SkipChannelDisabled), nil
	}
	if !pref.CategoryEnabled(tmpl.Type) {
		return f.skip(ctx, userID, tmpl, SkipCategoryDisabled), nil
	}

	now := f.now()
	quiet, resumeAt := pref.QuietWindow(now)

	// Caps are consumed at decision time, not at delivery time: a send
	// deferred past midnight is charged to the day it was decided, and a
	// failed enqueue does not refund its token. The limiter stays a
	// single atomic check-and-increment under concurrent decisions.

	if rl != nil {
		ok, err := f.limiter.AllowRule(ctx, userID, rl.ID, rl.FrequencyWindow())
		if err != nil {
			return Decision{}, err
		}
		if !ok {
			return f.skip(ctx, userID, tmpl, SkipFrequencyCapped), nil
		}
	}

	ok, err := f.limiter.AllowDaily(ctx, userID, tmpl.Channel, pref.DailyCap(tmpl.Channel))
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return f.skip(ctx, userID, tmpl, SkipDailyCapped), nil
	}

	if quiet {
		f.logger.LogAttrs(ctx, slog.LevelDebug, "deferring notification for quiet hours",
			slog.String("user_id", userID),
			slog.Time("resume_at", resumeAt))
		return Decision{Action: ActionDefer, At: resumeAt}, nil
	}

	return Decision{Action: ActionSend}, nil
}

func (f *Filter) skip(ctx context.Context, userID string, tmpl template.Template, reason SkipReason) Decision {
	f.logger.LogAttrs(ctx, slog.LevelDebug, "skipping notification",
		slog.String("user_id", userID),
		slog.String("channel", string(tmpl.Channel)),
		slog.String("reason", string(reason)))
	return Decision{Action: ActionSkip, Reason: reason}
}
