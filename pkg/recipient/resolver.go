package recipient

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/civicflow/notifier/pkg/event"
	"github.com/civicflow/notifier/pkg/rule"
)

// Resolver expands recipient policies against a directory.
type Resolver struct {
	dir    Directory
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger for policy-resolution warnings.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver over the given directory.
func NewResolver(dir Directory, opts ...ResolverOption) (*Resolver, error) {
	if dir == nil {
		return nil, fmt.Errorf("directory cannot be nil")
	}

	r := &Resolver{dir: dir, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve returns the de-duplicated set of recipient user ids for a matched
// rule. Directory errors and unresolvable policies degrade to an empty set
// with a warning; only a nil return with no log means genuinely nobody to
// notify.
func (r *Resolver) Resolve(ctx context.Context, rl rule.Rule, ev event.Event) []string {
	var ids []string

	switch rl.RecipientPolicy {
	case rule.PolicyEventSubject:
		owner, err := r.dir.EntityOwner(ctx, ev.EntityID)
		if err != nil {
			r.warn(ctx, rl, ev, "entity owner lookup failed", err)
			return nil
		}
		if owner != "" {
			ids = append(ids, owner)
		}

	case rule.PolicyDepartmentOfficer:
		officer, err := r.dir.DepartmentOfficer(ctx, ev.EntityID)
		if err != nil {
			r.warn(ctx, rl, ev, "department officer lookup failed", err)
			return nil
		}
		if officer != "" {
			ids = append(ids, officer)
		}

	case rule.PolicyAllOfficers:
		officers, err := r.dir.UsersByRole(ctx, RoleOfficer)
		if err != nil {
			r.warn(ctx, rl, ev, "officer role lookup failed", err)
			return nil
		}
		ids = officers

	case rule.PolicyAdmins:
		admins, err := r.dir.UsersByRole(ctx, RoleAdmin)
		if err != nil {
			r.warn(ctx, rl, ev, "admin role lookup failed", err)
			return nil
		}
		ids = admins

	case rule.PolicyCustomList:
		ids = rl.CustomRecipients

	default:
		r.warn(ctx, rl, ev, "unknown recipient policy", nil)
		return nil
	}

	return dedupe(ids)
}

func (r *Resolver) warn(ctx context.Context, rl rule.Rule, ev event.Event, msg string, err error) {
	attrs := []slog.Attr{
		slog.String("rule_id", rl.ID),
		slog.String("policy", string(rl.RecipientPolicy)),
		slog.String("event_type", string(ev.Type)),
		slog.String("entity_id", ev.EntityID),
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}
	r.logger.LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
}

// dedupe removes duplicate ids preserving first-seen order. The result is a
// fresh slice: the input may alias a stored rule's recipient list, which
// concurrent resolutions share and must never write to.
func dedupe(ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
