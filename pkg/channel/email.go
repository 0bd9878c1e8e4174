package channel

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mrz1836/postmark"

	"github.com/civicflow/notifier/pkg/template"
)

// EmailConfig holds Postmark adapter configuration.
type EmailConfig struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail  string `env:"SENDER_EMAIL"`
	SupportEmail string `env:"SUPPORT_EMAIL"`
}

// postmarkAdapter sends email through Postmark's transactional API.
type postmarkAdapter struct {
	client *postmark.Client
	config EmailConfig
}

// NewPostmarkAdapter creates the email channel adapter. Both tokens and the
// sender identity are required; this enforces explicit configuration rather
// than silent failures in production.
func NewPostmarkAdapter(cfg EmailConfig) (Adapter, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: ServerToken is required", ErrInvalidConfig)
	}
	if cfg.AccountToken == "" {
		return nil, fmt.Errorf("%w: AccountToken is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}

	return &postmarkAdapter{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		config: cfg,
	}, nil
}

func (a *postmarkAdapter) Name() string { return "postmark" }

func (a *postmarkAdapter) Channel() template.Channel { return template.ChannelEmail }

// Send implements Adapter. Postmark hard-bounce class errors (4xx-style API
// error codes) are surfaced as permanent so the dispatcher does not retry an
// address that will never accept mail. Open tracking feeds the analytics
// aggregator through Postmark's webhook.
func (a *postmarkAdapter) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Address == "" {
		return "", Permanent("missing_address", ErrMissingAddress)
	}

	body := msg.HTMLBody
	if body == "" {
		body = msg.Body
	}

	resp, err := a.client.SendEmail(ctx, postmark.Email{
		From:       a.config.SenderEmail,
		ReplyTo:    a.config.SupportEmail,
		To:         msg.Address,
		Subject:    msg.Subject,
		HTMLBody:   body,
		TextBody:   msg.Body,
		Tag:        string(msg.Channel),
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		apiErr := fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message)
		if isPostmarkPermanent(resp.ErrorCode) {
			return "", Permanent(strconv.FormatInt(resp.ErrorCode, 10), apiErr)
		}
		return "", fmt.Errorf("%w: %w", ErrSendFailed, apiErr)
	}

	return resp.MessageID, nil
}

// isPostmarkPermanent classifies Postmark API error codes that no retry can
// fix: invalid or inactive recipients and suppressed addresses.
func isPostmarkPermanent(code int64) bool {
	switch code {
	case 300, // invalid email request (malformed address)
		406: // inactive recipient (hard bounce or spam complaint)
		return true
	}
	return false
}
