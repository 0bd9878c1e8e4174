package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicflow/notifier/internal/api"
	"github.com/civicflow/notifier/pkg/analytics"
	"github.com/civicflow/notifier/pkg/channel"
	"github.com/civicflow/notifier/pkg/dispatch"
	"github.com/civicflow/notifier/pkg/engine"
	"github.com/civicflow/notifier/pkg/inbox"
	"github.com/civicflow/notifier/pkg/preference"
	"github.com/civicflow/notifier/pkg/recipient"
	"github.com/civicflow/notifier/pkg/rule"
	"github.com/civicflow/notifier/pkg/template"
)

// testServer wires the router over memory stores with a running engine.
type testServer struct {
	srv         *httptest.Server
	engine      *engine.Engine
	rules       *rule.MemoryStore
	templates   *template.MemoryStore
	directory   *recipient.MemoryDirectory
	preferences *preference.MemoryStore
	storage     *dispatch.MemoryStorage
	inbox       *inbox.MemoryStorage
	analytics   *analytics.MemoryStore
	engagements *analytics.MemoryEngagementRecorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	rules := rule.NewMemoryStore()
	templates := template.NewMemoryStore()
	directory := recipient.NewMemoryDirectory()
	preferences := preference.NewMemoryStore()
	storage := dispatch.NewMemoryStorage()
	inboxStore := inbox.NewMemoryStorage()
	statsStore := analytics.NewMemoryStore()
	engagements := analytics.NewMemoryEngagementRecorder()

	filter, err := preference.NewFilter(preferences, preference.NewMemoryLimiter())
	require.NoError(t, err)
	resolver, err := recipient.NewResolver(directory)
	require.NoError(t, err)

	// Long poll interval keeps enqueued rows pending for inspection.
	worker, err := dispatch.NewWorker(storage, dispatch.WithPollInterval(time.Hour))
	require.NoError(t, err)
	worker.RegisterAdapter(channel.NewCaptureAdapter(template.ChannelEmail))

	eng, err := engine.New(engine.Deps{
		Rules:     rules,
		Templates: templates,
		Filter:    filter,
		Resolver:  resolver,
		Directory: directory,
		Renderer:  template.NewRenderer(),
		Storage:   storage,
		Worker:    worker,
	})
	require.NoError(t, err)
	require.NoError(t, eng.Start(context.Background()))
	t.Cleanup(func() { _ = eng.Stop() })

	router := api.NewRouter(api.Deps{
		Engine:      eng,
		Rules:       rules,
		Templates:   templates,
		Preferences: preferences,
		Dispatch:    storage,
		Inbox:       inboxStore,
		Analytics:   statsStore,
		Engagements: engagements,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{
		srv:         srv,
		engine:      eng,
		rules:       rules,
		templates:   templates,
		directory:   directory,
		preferences: preferences,
		storage:     storage,
		inbox:       inboxStore,
		analytics:   statsStore,
		engagements: engagements,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (ts *testServer) seedUserAndTemplate(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	ts.directory.AddUser(recipient.User{ID: "citizen-1", Name: "Amira", Email: "amira@example.com"})
	require.NoError(t, ts.templates.Create(ctx, template.Template{
		ID:                 "tmpl-1",
		Type:               template.TypeSystemAlert,
		Channel:            template.ChannelEmail,
		SubjectTemplate:    "Notice for {{user_name}}",
		BodyTemplate:       "Hello {{user_name}}",
		AvailableVariables: []string{"user_name"},
		IsActive:           true,
	}))
}

func TestTemplateEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	tmpl := map[string]any{
		"id":                  "tmpl-status",
		"type":                "status-change",
		"channel":             "email",
		"subject_template":    "Update on {{complaint_id}}",
		"body_template":       "Status is now {{new_status}}",
		"available_variables": []string{"complaint_id", "new_status"},
		"is_active":           true,
	}

	resp := ts.do(t, http.MethodPost, "/v1/templates", tmpl)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/v1/templates", tmpl)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "duplicate id")

	resp = ts.do(t, http.MethodGet, "/v1/templates/tmpl-status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[template.Template](t, resp)
	assert.Equal(t, template.ChannelEmail, got.Channel)

	resp = ts.do(t, http.MethodGet, "/v1/templates/absent", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Undeclared placeholder is an authoring error.
	bad := map[string]any{
		"id":            "tmpl-bad",
		"type":          "comment",
		"channel":       "sms",
		"body_template": "Hi {{secret_field}}",
	}
	resp = ts.do(t, http.MethodPost, "/v1/templates", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRuleEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.seedUserAndTemplate(t)

	rl := map[string]any{
		"id":               "rule-1",
		"name":             "alert on resolution",
		"trigger_event":    "resolved",
		"template_id":      "tmpl-1",
		"recipient_policy": "event-subject",
		"is_active":        true,
	}

	resp := ts.do(t, http.MethodPost, "/v1/rules", rl)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/v1/rules", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rules := decodeBody[[]rule.Rule](t, resp)
	require.Len(t, rules, 1)
	assert.Equal(t, "rule-1", rules[0].ID)

	bad := map[string]any{
		"id":               "rule-bad",
		"name":             "broken",
		"trigger_event":    "no_such_event",
		"template_id":      "tmpl-1",
		"recipient_policy": "event-subject",
	}
	resp = ts.do(t, http.MethodPost, "/v1/rules", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/v1/rules/rule-1/deactivate", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := ts.rules.Get(context.Background(), "rule-1")
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	resp = ts.do(t, http.MethodPost, "/v1/rules/absent/deactivate", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEventIngestion(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/v1/events", map[string]any{
		"type":      "resolved",
		"entity_id": "complaint-9",
		"actor_id":  "officer-1",
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/v1/events", map[string]any{
		"type":      "not_a_thing",
		"entity_id": "complaint-9",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/v1/events", map[string]any{
		"type": "resolved",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "missing entity id")
}

func TestAdHocSend(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.seedUserAndTemplate(t)

	resp := ts.do(t, http.MethodPost, "/v1/notifications", map[string]any{
		"user_id":     "citizen-1",
		"template_id": "tmpl-1",
		"context":     map[string]string{"user_name": "Amira"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[map[string]string](t, resp)
	require.NotEmpty(t, created["id"])

	// The queued row is readable back through the query endpoints.
	resp = ts.do(t, http.MethodGet, "/v1/notifications/"+created["id"], nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	n := decodeBody[dispatch.QueuedNotification](t, resp)
	assert.Equal(t, "citizen-1", n.UserID)
	assert.Equal(t, "Hello Amira", n.Body)
	assert.Nil(t, n.RuleID)

	resp = ts.do(t, http.MethodPost, "/v1/notifications", map[string]any{
		"user_id":     "citizen-1",
		"template_id": "absent",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Opted-out channel surfaces as a conflict, not a silent drop.
	require.NoError(t, ts.preferences.Upsert(context.Background(), func() preference.Preference {
		p := preference.Default("citizen-1")
		p.EmailEnabled = false
		return p
	}()))
	resp = ts.do(t, http.MethodPost, "/v1/notifications", map[string]any{
		"user_id":     "citizen-1",
		"template_id": "tmpl-1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestNotificationListing(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.seedUserAndTemplate(t)

	resp := ts.do(t, http.MethodPost, "/v1/notifications", map[string]any{
		"user_id":     "citizen-1",
		"template_id": "tmpl-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/v1/notifications?status=pending", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pending := decodeBody[[]dispatch.QueuedNotification](t, resp)
	assert.Len(t, pending, 1)

	resp = ts.do(t, http.MethodGet, "/v1/notifications?status=sent", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sent := decodeBody[[]dispatch.QueuedNotification](t, resp)
	assert.Empty(t, sent)

	resp = ts.do(t, http.MethodGet, "/v1/notifications?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/v1/notifications/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreferenceEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	// Unknown user reads back the permissive default.
	resp := ts.do(t, http.MethodGet, "/v1/users/citizen-7/preferences", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decodeBody[preference.Preference](t, resp)
	assert.True(t, p.EmailEnabled)
	assert.True(t, p.MarketingEnabled)

	p.SMSEnabled = false
	p.QuietHoursStart = "22:00"
	p.QuietHoursEnd = "07:00"
	p.Timezone = "Asia/Kolkata"
	resp = ts.do(t, http.MethodPut, "/v1/users/citizen-7/preferences", p)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/v1/users/citizen-7/preferences", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stored := decodeBody[preference.Preference](t, resp)
	assert.False(t, stored.SMSEnabled)
	assert.Equal(t, "22:00", stored.QuietHoursStart)
	assert.Equal(t, "Asia/Kolkata", stored.Timezone)
}

func TestInboxEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, ts.inbox.Create(ctx, inbox.Message{
			ID:        fmt.Sprintf("msg-%d", i),
			UserID:    "citizen-1",
			Body:      fmt.Sprintf("message %d", i),
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	resp := ts.do(t, http.MethodGet, "/v1/users/citizen-1/inbox", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msgs := decodeBody[[]inbox.Message](t, resp)
	require.Len(t, msgs, 3)

	resp = ts.do(t, http.MethodGet, "/v1/users/citizen-1/inbox/unread-count", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	count := decodeBody[map[string]int](t, resp)
	assert.Equal(t, 3, count["unread"])

	resp = ts.do(t, http.MethodPost, "/v1/users/citizen-1/inbox/read", map[string]any{
		"ids": []string{"msg-0", "msg-1"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/v1/users/citizen-1/inbox/unread-count", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	count = decodeBody[map[string]int](t, resp)
	assert.Equal(t, 1, count["unread"])

	// Inbox access is owner scoped.
	resp = ts.do(t, http.MethodGet, "/v1/users/someone-else/inbox", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	other := decodeBody[[]inbox.Message](t, resp)
	assert.Empty(t, other)
}

func TestAnalyticsEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ctx := context.Background()

	day := analytics.Day(time.Now())
	require.NoError(t, ts.analytics.Upsert(ctx, analytics.DailyStats{
		TemplateID: "tmpl-1",
		Date:       day,
		Sent:       10,
		Delivered:  9,
	}))

	resp := ts.do(t, http.MethodGet, "/v1/analytics/tmpl-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows := decodeBody[[]analytics.DailyStats](t, resp)
	require.Len(t, rows, 1)
	assert.Equal(t, 10, rows[0].Sent)

	resp = ts.do(t, http.MethodGet, "/v1/analytics/tmpl-1?from=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodGet,
		"/v1/analytics/tmpl-1?from=2026-02-10&to=2026-02-01", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEngagementIngestion(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	notifID := "6b1f6f3e-8f2a-4c1d-9d52-0a4f0e6d7c11"
	resp := ts.do(t, http.MethodPost, "/v1/engagements", map[string]any{
		"notification_id": notifID,
		"template_id":     "tmpl-1",
		"kind":            "open",
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	count, err := ts.engagements.CountDistinct(context.Background(),
		"tmpl-1", analytics.EngagementOpen, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	resp = ts.do(t, http.MethodPost, "/v1/engagements", map[string]any{
		"notification_id": notifID,
		"template_id":     "tmpl-1",
		"kind":            "forwarded",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/v1/engagements", map[string]any{
		"notification_id": "not-a-uuid",
		"template_id":     "tmpl-1",
		"kind":            "open",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
