package channel

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/civicflow/notifier/pkg/template"
)

// Signature headers attached to every outbound webhook.
const (
	HeaderSignature = "X-Notifier-Signature"
	HeaderTimestamp = "X-Notifier-Timestamp"
)

// WebhookConfig holds webhook adapter configuration.
type WebhookConfig struct {
	// SigningSecret signs outbound payloads; receivers verify with the
	// same secret. Optional: unset disables signing.
	SigningSecret string `env:"WEBHOOK_SIGNING_SECRET"`

	// RequestTimeout bounds a single delivery attempt.
	RequestTimeout time.Duration `env:"WEBHOOK_REQUEST_TIMEOUT" envDefault:"30s"`
}

// webhookAdapter POSTs rendered notifications to per-user endpoint URLs.
type webhookAdapter struct {
	client *http.Client
	secret string
}

// webhookPayload is the JSON body delivered to the receiver.
type webhookPayload struct {
	ID      uuid.UUID         `json:"id"`
	Subject string            `json:"subject,omitempty"`
	Body    string            `json:"body"`
	HTML    string            `json:"html,omitempty"`
	Context map[string]string `json:"context,omitempty"`
	SentAt  time.Time         `json:"sent_at"`
}

// NewWebhookAdapter creates the webhook channel adapter. The HTTP client is
// reused across requests for connection pooling.
func NewWebhookAdapter(cfg WebhookConfig) Adapter {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &webhookAdapter{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		secret: cfg.SigningSecret,
	}
}

func (a *webhookAdapter) Name() string { return "webhook" }

func (a *webhookAdapter) Channel() template.Channel { return template.ChannelWebhook }

// Send implements Adapter. A 2xx response is success; 4xx responses are
// permanent (the endpoint rejected the payload and will keep rejecting it);
// everything else is transient and retried by the dispatcher.
func (a *webhookAdapter) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Address == "" {
		return "", Permanent("missing_address", ErrMissingAddress)
	}

	payload, err := json.Marshal(webhookPayload{
		ID:      msg.ID,
		Subject: msg.Subject,
		Body:    msg.Body,
		HTML:    msg.HTMLBody,
		Context: msg.Context,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return "", Permanent("marshal", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, msg.Address, bytes.NewReader(payload))
	if err != nil {
		return "", Permanent("bad_url", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if a.secret != "" {
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		req.Header.Set(HeaderTimestamp, ts)
		req.Header.Set(HeaderSignature, Sign(a.secret, ts, payload))
	}

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
			fmt.Errorf("endpoint rejected webhook with status %d", resp.StatusCode))
	default:
		return "", fmt.Errorf("%w: endpoint returned status %d", ErrSendFailed, resp.StatusCode)
	}
}

// Sign computes the hex HMAC-SHA256 of "timestamp.payload". The timestamp in
// the signed material lets receivers reject replayed deliveries.
func Sign(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature against the signing secret.
func VerifySignature(secret, timestamp string, payload []byte, signature string) bool {
	expected := Sign(secret, timestamp, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
