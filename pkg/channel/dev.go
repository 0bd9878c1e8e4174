package channel

import (
	"context"
	"log/slog"
	"sync"

	"github.com/civicflow/notifier/pkg/template"
)

// DevAdapter logs messages instead of delivering them. It stands in for any
// channel in local development where no provider credentials exist.
type DevAdapter struct {
	channel template.Channel
	logger  *slog.Logger
}

// NewDevAdapter creates a logging adapter for the given channel.
func NewDevAdapter(ch template.Channel, logger *slog.Logger) *DevAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevAdapter{channel: ch, logger: logger}
}

func (a *DevAdapter) Name() string { return "dev-" + string(a.channel) }

func (a *DevAdapter) Channel() template.Channel { return a.channel }

// Send implements Adapter.
func (a *DevAdapter) Send(ctx context.Context, msg Message) (string, error) {
	a.logger.LogAttrs(ctx, slog.LevelInfo, "dev adapter delivery",
		slog.String("channel", string(a.channel)),
		slog.String("message_id", msg.ID.String()),
		slog.String("address", msg.Address),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body))
	return msg.ID.String(), nil
}

// CaptureAdapter records every message it receives and returns scripted
// results. Tests use it to observe what the dispatcher sends.
type CaptureAdapter struct {
	mu       sync.Mutex
	channel  template.Channel
	messages []Message

	// Err, when set, is returned for every send.
	Err error
}

// NewCaptureAdapter creates a capturing adapter for the given channel.
func NewCaptureAdapter(ch template.Channel) *CaptureAdapter {
	return &CaptureAdapter{channel: ch}
}

func (a *CaptureAdapter) Name() string { return "capture-" + string(a.channel) }

func (a *CaptureAdapter) Channel() template.Channel { return a.channel }

// Send implements Adapter.
func (a *CaptureAdapter) Send(ctx context.Context, msg Message) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.messages = append(a.messages, msg)
	if a.Err != nil {
		return "", a.Err
	}
	return msg.ID.String(), nil
}

// Messages returns a copy of everything sent so far.
func (a *CaptureAdapter) Messages() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Message, len(a.messages))
	copy(out, a.messages)
	return out
}
