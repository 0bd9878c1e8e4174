package template

import "context"

// Store handles template persistence and retrieval.
type Store interface {
	// Create stores a new template after validation.
	Create(ctx context.Context, t Template) error

	// Update replaces an existing template. Already-queued notifications
	// carry their rendered text and are unaffected.
	Update(ctx context.Context, t Template) error

	// Get retrieves a template by id.
	Get(ctx context.Context, id string) (*Template, error)

	// List returns all templates.
	List(ctx context.Context) ([]Template, error)
}
