package channel

import (
	"context"
	"fmt"

	"github.com/civicflow/notifier/pkg/inbox"
	"github.com/civicflow/notifier/pkg/template"
)

// inAppAdapter stores messages into the in-app message center. There is no
// external provider; the inbox storage is the delivery target.
type inAppAdapter struct {
	storage inbox.Storage
}

// NewInAppAdapter creates the in-app channel adapter over an inbox.
func NewInAppAdapter(storage inbox.Storage) (Adapter, error) {
	if storage == nil {
		return nil, fmt.Errorf("%w: inbox storage cannot be nil", ErrInvalidConfig)
	}
	return &inAppAdapter{storage: storage}, nil
}

func (a *inAppAdapter) Name() string { return "in-app" }

func (a *inAppAdapter) Channel() template.Channel { return template.ChannelInApp }

// Send implements Adapter. The in-app address is the user id itself.
func (a *inAppAdapter) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Address == "" {
		return "", Permanent("missing_user", ErrMissingAddress)
	}

	if err := a.storage.Create(ctx, inbox.Message{
		ID:      msg.ID.String(),
		UserID:  msg.Address,
		Subject: msg.Subject,
		Body:    msg.Body,
		Data:    msg.Context,
	}); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return msg.ID.String(), nil
}
