package inbox

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a message does not exist for the user.
var ErrNotFound = errors.New("inbox message not found")

// Storage handles inbox persistence and retrieval.
type Storage interface {
	// Create stores a new message.
	Create(ctx context.Context, msg Message) error

	// Get retrieves a single message scoped to its owner.
	Get(ctx context.Context, userID, msgID string) (*Message, error)

	// List returns messages for a user, newest first.
	List(ctx context.Context, userID string, opts ListOptions) ([]Message, error)

	// MarkRead marks message(s) as read.
	MarkRead(ctx context.Context, userID string, msgIDs ...string) error

	// CountUnread returns the unread count for a user.
	CountUnread(ctx context.Context, userID string) (int, error)
}
