package rule

import (
	"context"

	"github.com/civicflow/notifier/pkg/event"
)

// Store handles rule persistence and retrieval.
type Store interface {
	// Create stores a new rule.
	Create(ctx context.Context, r Rule) error

	// Update replaces an existing rule.
	Update(ctx context.Context, r Rule) error

	// Get retrieves a rule by id.
	Get(ctx context.Context, id string) (*Rule, error)

	// ListByTrigger returns all rules registered for the trigger event,
	// active or not.
	ListByTrigger(ctx context.Context, t event.Type) ([]Rule, error)

	// List returns all rules.
	List(ctx context.Context) ([]Rule, error)
}
