// Package channel defines the transport boundary of the dispatch engine and
// the built-in adapters for email, SMS, push, webhook, and in-app delivery.
//
// Adapters are swappable without touching the dispatch core: each one turns
// an already-rendered Message into a provider call and reports either a
// provider message id or an error. Errors the provider will never recover
// from (invalid address, unsubscribed recipient, any 4xx) are wrapped in
// PermanentError so the dispatcher fails the row immediately instead of
// burning retries.
package channel

import (
	"context"

	"github.com/google/uuid"

	"github.com/civicflow/notifier/pkg/template"
)

// Message is a fully rendered notification handed to an adapter.
type Message struct {
	ID       uuid.UUID         `json:"id"`
	UserID   string            `json:"user_id"`
	Channel  template.Channel  `json:"channel"`
	Address  string            `json:"address"`
	Subject  string            `json:"subject,omitempty"`
	Body     string            `json:"body"`
	HTMLBody string            `json:"html_body,omitempty"`
	Context  map[string]string `json:"context,omitempty"`
}

// Adapter performs the transport-specific send.
type Adapter interface {
	// Name identifies the provider for the delivery ledger.
	Name() string

	// Channel returns the channel this adapter serves.
	Channel() template.Channel

	// Send delivers the message and returns the provider's message id.
	// Implementations must respect ctx cancellation; the dispatcher runs
	// every send under its own timeout.
	Send(ctx context.Context, msg Message) (string, error)
}
