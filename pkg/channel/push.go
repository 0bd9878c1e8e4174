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

// PushConfig holds push gateway adapter configuration.
type PushConfig struct {
	GatewayURL     string        `env:"PUSH_GATEWAY_URL"`
	APIKey         string        `env:"PUSH_API_KEY"`
	RequestTimeout time.Duration `env:"PUSH_REQUEST_TIMEOUT" envDefault:"15s"`
}

// pushAdapter posts notifications to a JSON push gateway keyed by device
// token.
type pushAdapter struct {
	client *http.Client
	config PushConfig
}

type pushRequest struct {
	Token string            `json:"token"`
	Title string            `json:"title,omitempty"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	RefID string            `json:"ref_id"`
}

// NewPushAdapter creates the push channel adapter.
func NewPushAdapter(cfg PushConfig) (Adapter, error) {
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
	return &pushAdapter{
		client: &http.Client{Timeout: timeout},
		config: cfg,
	}, nil
}

func (a *pushAdapter) Name() string { return "push-gateway" }

func (a *pushAdapter) Channel() template.Channel { return template.ChannelPush }

// Send implements Adapter. A 4xx from the gateway almost always means a
// stale or unregistered device token, so it is classified permanent.
func (a *pushAdapter) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Address == "" {
		return "", Permanent("missing_token", ErrMissingAddress)
	}

	body, err := json.Marshal(pushRequest{
		Token: msg.Address,
		Body:  msg.Body,
		Data:  msg.Context,
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
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return msg.ID.String(), nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", Permanent(strconv.Itoa(resp.StatusCode),
			fmt.Errorf("gateway rejected push with status %d", resp.StatusCode))
	default:
		return "", fmt.Errorf("%w: gateway returned status %d", ErrSendFailed, resp.StatusCode)
	}
}
