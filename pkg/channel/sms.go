package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/civicflow/notifier/pkg/template"
)

// SMSConfig holds SMS gateway adapter configuration.
type SMSConfig struct {
	GatewayURL     string        `env:"SMS_GATEWAY_URL"`
	APIKey         string        `env:"SMS_API_KEY"`
	SenderID       string        `env:"SMS_SENDER_ID" envDefault:"CIVICFLOW"`
	RequestTimeout time.Duration `env:"SMS_REQUEST_TIMEOUT" envDefault:"15s"`
}

// smsAdapter posts messages to a JSON SMS gateway.
type smsAdapter struct {
	client *http.Client
	config SMSConfig
}

type smsRequest struct {
	To    string `json:"to"`
	From  string `json:"from"`
	Text  string `json:"text"`
	RefID string `json:"ref_id"`
}

type smsResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// NewSMSAdapter creates the SMS channel adapter.
func NewSMSAdapter(cfg SMSConfig) (Adapter, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("%w: GatewayURL is required", ErrInvalidConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: APIKey is required", ErrInvalidConfig)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &smsAdapter{
		client: &http.Client{Timeout: timeout},
		config: cfg,
	}, nil
}

func (a *smsAdapter) Name() string { return "sms-gateway" }

func (a *smsAdapter) Channel() template.Channel { return template.ChannelSMS }

// Send implements Adapter. Gateway 4xx responses mean the number is invalid
// or blocked and are surfaced as permanent.
func (a *smsAdapter) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Address == "" {
		return "", Permanent("missing_address", ErrMissingAddress)
	}

	body, err := json.Marshal(smsRequest{
		To:    msg.Address,
		From:  a.config.SenderID,
		Text:  msg.Body,
		RefID: msg.ID.String(),
	})
	if err != nil {
		return "", Permanent("marshal", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return "", Permanent("bad_url", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var gw smsResponse
		if err := json.Unmarshal(respBody, &gw); err != nil || gw.MessageID == "" {
			return msg.ID.String(), nil
		}
		return gw.MessageID, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", Permanent(strconv.Itoa(resp.StatusCode),
			fmt.Errorf("gateway rejected sms with status %d: %s", resp.StatusCode, respBody))
	default:
		return "", fmt.Errorf("%w: gateway returned status %d", ErrSendFailed, resp.StatusCode)
	}
}
