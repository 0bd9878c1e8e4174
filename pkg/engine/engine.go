package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civicflow/notifier/pkg/analytics"
	"github.com/civicflow/notifier/pkg/dispatch"
	"github.com/civicflow/notifier/pkg/event"
	"github.com/civicflow/notifier/pkg/preference"
	"github.com/civicflow/notifier/pkg/recipient"
	"github.com/civicflow/notifier/pkg/rule"
	"github.com/civicflow/notifier/pkg/template"
)

// Deps are the collaborators the engine is constructed over. All fields are
// required except Aggregator, which disables the nightly rollup when nil.
type Deps struct {
	Rules      rule.Store
	Templates  template.Store
	Filter     *preference.Filter
	Resolver   *recipient.Resolver
	Directory  recipient.Directory
	Renderer   *template.Renderer
	Storage    dispatch.Storage
	Worker     *dispatch.Worker
	Aggregator *analytics.Aggregator
}

func (d Deps) validate() error {
	switch {
	case d.Rules == nil:
		return fmt.Errorf("%w: rule store", ErrMissingDependency)
	case d.Templates == nil:
		return fmt.Errorf("%w: template store", ErrMissingDependency)
	case d.Filter == nil:
		return fmt.Errorf("%w: preference filter", ErrMissingDependency)
	case d.Resolver == nil:
		return fmt.Errorf("%w: recipient resolver", ErrMissingDependency)
	case d.Directory == nil:
		return fmt.Errorf("%w: directory", ErrMissingDependency)
	case d.Renderer == nil:
		return fmt.Errorf("%w: renderer", ErrMissingDependency)
	case d.Storage == nil:
		return fmt.Errorf("%w: dispatch storage", ErrMissingDependency)
	case d.Worker == nil:
		return fmt.Errorf("%w: dispatch worker", ErrMissingDependency)
	}
	return nil
}

// Engine is the dependency-injected dispatch service: constructed once at
// process start, started, and torn down at shutdown.
type Engine struct {
	deps   Deps
	events chan event.Event

	queueSize        int
	eventWorkers     int
	producerPatience time.Duration
	analyticsAt      time.Duration
	logger           *slog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	nightlyWg sync.WaitGroup

	// sendMu serializes producers against channel close: FireEvent holds
	// the read side across its send, Stop takes the write side before
	// closing, so a producer can never hit a closed channel.
	sendMu sync.RWMutex
	closed bool
}

// New creates an engine over its collaborators.
func New(deps Deps, opts ...Option) (*Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Engine{
		deps:             deps,
		events:           make(chan event.Event, options.queueSize),
		queueSize:        options.queueSize,
		eventWorkers:     options.eventWorkers,
		producerPatience: options.producerPatience,
		analyticsAt:      options.analyticsAt,
		logger:           options.logger,
	}, nil
}

// Start launches the event consumers, the dispatch worker, and the nightly
// analytics job.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.cancel != nil {
		e.mu.Unlock()
		return fmt.Errorf("engine already started")
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	if err := e.deps.Worker.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dispatch worker: %w", err)
	}

	for i := 0; i < e.eventWorkers; i++ {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.consume(ctx)
		}()
	}

	// The nightly job waits on its own group: consumers drain the closed
	// event channel first, then cancellation releases the timer loop.
	if e.deps.Aggregator != nil {
		e.nightlyWg.Add(1)
		go func() {
			defer e.nightlyWg.Done()
			e.nightlyAnalytics(ctx)
		}()
	}

	e.logger.Info("notification engine started",
		slog.Int("event_workers", e.eventWorkers),
		slog.Int("queue_size", e.queueSize))
	return nil
}

// Stop drains consumers and shuts the dispatch worker down. Events still in
// the channel are processed before return.
func (e *Engine) Stop() error {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel == nil {
		return ErrNotStarted
	}

	e.sendMu.Lock()
	e.closed = true
	close(e.events)
	e.sendMu.Unlock()

	e.wg.Wait()
	cancel()
	e.nightlyWg.Wait()

	if err := e.deps.Worker.Stop(); err != nil {
		return err
	}
	e.logger.Info("notification engine stopped")
	return nil
}

// Run returns a function suitable for errgroup: start, wait for ctx, stop.
func (e *Engine) Run(ctx context.Context) func() error {
	return func() error {
		if err := e.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return e.Stop()
	}
}

// FireEvent ingests a domain event for asynchronous processing. It returns
// once the event is accepted; matching and enqueueing happen on the consumer
// pool. A full channel blocks the producer briefly, then reports
// back-pressure instead of growing without bound.
func (e *Engine) FireEvent(ctx context.Context, ev event.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	e.mu.Lock()
	started := e.cancel != nil
	e.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	timer := time.NewTimer(e.producerPatience)
	defer timer.Stop()

	e.sendMu.RLock()
	defer e.sendMu.RUnlock()
	if e.closed {
		return ErrNotStarted
	}

	select {
	case e.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		e.logger.Warn("event dropped under back-pressure",
			slog.String("event_type", string(ev.Type)),
			slog.String("entity_id", ev.EntityID))
		return ErrBackpressure
	}
}

// consume drains the event channel until it is closed.
func (e *Engine) consume(ctx context.Context) {
	for ev := range e.events {
		e.processEvent(ctx, ev)
	}
}

// processEvent runs the full pipeline for one event. Rule-authoring problems
// degrade per-rule or per-recipient; only infrastructure failures are logged
// as errors.
func (e *Engine) processEvent(ctx context.Context, ev event.Event) {
	rules, err := e.deps.Rules.ListByTrigger(ctx, ev.Type)
	if err != nil {
		e.logger.Error("failed to load rules for event",
			slog.String("event_type", string(ev.Type)),
			slog.Any("error", err))
		return
	}

	for _, rl := range rule.Select(rules, ev) {
		e.applyRule(ctx, rl, ev)
	}
}

// applyRule expands one matched rule into queued notifications.
func (e *Engine) applyRule(ctx context.Context, rl rule.Rule, ev event.Event) {
	tmpl, err := e.deps.Templates.Get(ctx, rl.TemplateID)
	if err != nil {
		if errors.Is(err, template.ErrNotFound) {
			// A rule without a resolvable template is inert.
			e.logger.Warn("rule references missing template",
				slog.String("rule_id", rl.ID),
				slog.String("template_id", rl.TemplateID))
			return
		}
		e.logger.Error("failed to load template",
			slog.String("template_id", rl.TemplateID),
			slog.Any("error", err))
		return
	}
	if !tmpl.IsActive {
		return
	}

	baseDelay := rl.Delay()
	for _, userID := range e.deps.Resolver.Resolve(ctx, rl, ev) {
		decision, err := e.deps.Filter.Decide(ctx, userID, &rl, *tmpl)
		if err != nil {
			e.logger.Error("preference filter failed",
				slog.String("user_id", userID),
				slog.String("rule_id", rl.ID),
				slog.Any("error", err))
			continue
		}
		if decision.Action == preference.ActionSkip {
			continue
		}

		scheduledAt := time.Now().Add(baseDelay)
		if decision.Action == preference.ActionDefer && decision.At.After(scheduledAt) {
			scheduledAt = decision.At
		}

		ruleID := rl.ID
		if err := e.enqueue(ctx, &ruleID, *tmpl, userID, scheduledAt, ev.Context, ev); err != nil {
			e.logger.Error("failed to enqueue notification",
				slog.String("user_id", userID),
				slog.String("rule_id", rl.ID),
				slog.Any("error", err))
		}
	}
}

// SendAdHoc sends a template to one user, bypassing rule matching but not
// the preference filter. Returns the queued notification id.
func (e *Engine) SendAdHoc(ctx context.Context, userID, templateID string, contextOverrides map[string]string) (uuid.UUID, error) {
	tmpl, err := e.deps.Templates.Get(ctx, templateID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load template %s: %w", templateID, err)
	}

	decision, err := e.deps.Filter.Decide(ctx, userID, nil, *tmpl)
	if err != nil {
		return uuid.Nil, err
	}
	if decision.Action == preference.ActionSkip {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrRecipientSkipped, decision.Reason)
	}

	scheduledAt := time.Now()
	if decision.Action == preference.ActionDefer {
		scheduledAt = decision.At
	}

	id, err := e.enqueueWithID(ctx, nil, *tmpl, userID, scheduledAt, contextOverrides, event.Event{})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// DeactivateRule marks a rule inactive and cancels its not-yet-claimed
// notifications. Rows already processing run to completion.
func (e *Engine) DeactivateRule(ctx context.Context, ruleID string) error {
	rl, err := e.deps.Rules.Get(ctx, ruleID)
	if err != nil {
		return err
	}
	if rl.IsActive {
		rl.IsActive = false
		if err := e.deps.Rules.Update(ctx, *rl); err != nil {
			return err
		}
	}

	cancelled, err := e.deps.Storage.CancelPending(ctx, ruleID)
	if err != nil {
		return fmt.Errorf("failed to cancel pending notifications: %w", err)
	}
	if cancelled > 0 {
		e.logger.Info("cancelled pending notifications for deactivated rule",
			slog.String("rule_id", ruleID),
			slog.Int("count", cancelled))
	}
	return nil
}

func (e *Engine) enqueue(ctx context.Context, ruleID *string, tmpl template.Template, userID string, at time.Time, overrides map[string]string, ev event.Event) error {
	_, err := e.enqueueWithID(ctx, ruleID, tmpl, userID, at, overrides, ev)
	return err
}

// enqueueWithID renders and persists one pending notification. The rendered
// text and the event context snapshot live on the row from here on.
func (e *Engine) enqueueWithID(ctx context.Context, ruleID *string, tmpl template.Template, userID string, at time.Time, overrides map[string]string, ev event.Event) (uuid.UUID, error) {
	user, err := e.deps.Directory.User(ctx, userID)
	if err != nil {
		if errors.Is(err, recipient.ErrUserNotFound) {
			e.logger.Warn("recipient not in directory",
				slog.String("user_id", userID))
			return uuid.Nil, ErrNoAddress
		}
		return uuid.Nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	address, ok := user.Address(tmpl.Channel)
	if !ok {
		e.logger.Warn("recipient has no address for channel",
			slog.String("user_id", userID),
			slog.String("channel", string(tmpl.Channel)))
		return uuid.Nil, ErrNoAddress
	}

	vars := renderContext(*user, ev, overrides)
	rendered := e.deps.Renderer.Render(ctx, tmpl, vars)

	n := &dispatch.QueuedNotification{
		ID:          uuid.New(),
		RuleID:      ruleID,
		TemplateID:  tmpl.ID,
		UserID:      userID,
		Channel:     tmpl.Channel,
		Address:     address,
		Subject:     rendered.Subject,
		Body:        rendered.Body,
		HTMLBody:    rendered.HTMLBody,
		Status:      dispatch.StatusPending,
		ScheduledAt: at,
		Context:     vars,
		CreatedAt:   time.Now(),
	}
	if err := e.deps.Storage.CreateNotification(ctx, n); err != nil {
		return uuid.Nil, fmt.Errorf("failed to persist notification: %w", err)
	}

	e.logger.Debug("notification enqueued",
		slog.String("notification_id", n.ID.String()),
		slog.String("user_id", userID),
		slog.String("channel", string(tmpl.Channel)),
		slog.Time("scheduled_at", at))
	return n.ID, nil
}

// renderContext merges the recipient's profile, the event's reserved fields,
// and the event payload into one variable map. Payload fields win on
// collision so events can override the defaults.
func renderContext(u recipient.User, ev event.Event, overrides map[string]string) map[string]string {
	vars := map[string]string{
		"user_id":   u.ID,
		"user_name": u.Name,
	}
	if ev.Type != "" {
		vars["event_type"] = string(ev.Type)
		vars["entity_id"] = ev.EntityID
		vars["actor_id"] = ev.ActorID
	}
	for k, v := range ev.Context {
		vars[k] = v
	}
	for k, v := range overrides {
		vars[k] = v
	}
	return vars
}
