package preference_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicflow/notifier/pkg/preference"
	"github.com/civicflow/notifier/pkg/rule"
	"github.com/civicflow/notifier/pkg/template"
)

func statusTemplate(ch template.Channel) template.Template {
	return template.Template{
		ID:           "tmpl-1",
		Type:         template.TypeStatusChange,
		Channel:      ch,
		BodyTemplate: "status changed",
		IsActive:     true,
	}
}

func cappedRule(hours int) *rule.Rule {
	return &rule.Rule{
		ID:                "rule-1",
		Name:              "status updates",
		TriggerEvent:      "status_changed",
		TemplateID:        "tmpl-1",
		RecipientPolicy:   rule.PolicyEventSubject,
		MaxFrequencyHours: hours,
		IsActive:          true,
	}
}

func newFilter(t *testing.T, store preference.Store, opts ...preference.FilterOption) *preference.Filter {
	t.Helper()
	f, err := preference.NewFilter(store, preference.NewMemoryLimiter(), opts...)
	require.NoError(t, err)
	return f
}

func TestFilter_Decide(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("defaults allow send for unknown user", func(t *testing.T) {
		t.Parallel()

		f := newFilter(t, preference.NewMemoryStore())
		d, err := f.Decide(ctx, "stranger", cappedRule(0), statusTemplate(template.ChannelEmail))
		require.NoError(t, err)
		assert.Equal(t, preference.ActionSend, d.Action)
	})

	t.Run("disabled channel skips", func(t *testing.T) {
		t.Parallel()

		store := preference.NewMemoryStore()
		p := preference.Default("user-1")
		p.EmailEnabled = false
		require.NoError(t, store.Upsert(ctx, p))

		f := newFilter(t, store)
		d, err := f.Decide(ctx, "user-1", cappedRule(0), statusTemplate(template.ChannelEmail))
		require.NoError(t, err)
		assert.Equal(t, preference.ActionSkip, d.Action)
		assert.Equal(t, preference.SkipChannelDisabled, d.Reason)
	})

	t.Run("disabled category skips", func(t *testing.T) {
		t.Parallel()

		store := preference.NewMemoryStore()
		p := preference.Default("user-1")
		p.StatusChangeEnabled = false
		require.NoError(t, store.Upsert(ctx, p))

		f := newFilter(t, store)
		d, err := f.Decide(ctx, "user-1", cappedRule(0), statusTemplate(template.ChannelPush))
		require.NoError(t, err)
		assert.Equal(t, preference.SkipCategoryDisabled, d.Reason)
	})

	t.Run("quiet hours defer, not drop", func(t *testing.T) {
		t.Parallel()

		store := preference.NewMemoryStore()
		p := preference.Default("user-1")
		p.QuietHoursStart = "22:00"
		p.QuietHoursEnd = "07:00"
		p.Timezone = "UTC"
		require.NoError(t, store.Upsert(ctx, p))

		night := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
		f := newFilter(t, store, preference.WithClock(func() time.Time { return night }))

		d, err := f.Decide(ctx, "user-1", cappedRule(0), statusTemplate(template.ChannelPush))
		require.NoError(t, err)
		require.Equal(t, preference.ActionDefer, d.Action)
		assert.Equal(t, time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC), d.At)
	})

	t.Run("frequency cap blocks second decision in window", func(t *testing.T) {
		t.Parallel()

		f := newFilter(t, preference.NewMemoryStore())
		rl := cappedRule(24)

		d, err := f.Decide(ctx, "user-1", rl, statusTemplate(template.ChannelEmail))
		require.NoError(t, err)
		assert.Equal(t, preference.ActionSend, d.Action)

		d, err = f.Decide(ctx, "user-1", rl, statusTemplate(template.ChannelEmail))
		require.NoError(t, err)
		assert.Equal(t, preference.ActionSkip, d.Action)
		assert.Equal(t, preference.SkipFrequencyCapped, d.Reason)
	})

	t.Run("frequency cap is per user", func(t *testing.T) {
		t.Parallel()

		f := newFilter(t, preference.NewMemoryStore())
		rl := cappedRule(24)

		d, err := f.Decide(ctx, "alice", rl, statusTemplate(template.ChannelEmail))
		require.NoError(t, err)
		assert.Equal(t, preference.ActionSend, d.Action)

		d, err = f.Decide(ctx, "bob", rl, statusTemplate(template.ChannelEmail))
		require.NoError(t, err)
		assert.Equal(t, preference.ActionSend, d.Action)
	})

	t.Run("ad-hoc sends bypass the frequency cap", func(t *testing.T) {
		t.Parallel()

		f := newFilter(t, preference.NewMemoryStore())
		for i := 0; i < 3; i++ {
			d, err := f.Decide(ctx, "user-1", nil, statusTemplate(template.ChannelEmail))
			require.NoError(t, err)
			assert.Equal(t, preference.ActionSend, d.Action)
		}
	})

	t.Run("daily cap exhausts", func(t *testing.T) {
		t.Parallel()

		store := preference.NewMemoryStore()
		p := preference.Default("user-1")
		p.DailyCaps = map[template.Channel]int{template.ChannelSMS: 2}
		require.NoError(t, store.Upsert(ctx, p))

		f := newFilter(t, store)
		for i := 0; i < 2; i++ {
			d, err := f.Decide(ctx, "user-1", nil, statusTemplate(template.ChannelSMS))
			require.NoError(t, err)
			assert.Equal(t, preference.ActionSend, d.Action)
		}

		d, err := f.Decide(ctx, "user-1", nil, statusTemplate(template.ChannelSMS))
		require.NoError(t, err)
		assert.Equal(t, preference.ActionSkip, d.Action)
		assert.Equal(t, preference.SkipDailyCapped, d.Reason)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		t.Parallel()

		f := newFilter(t, failingStore{})
		_, err := f.Decide(ctx, "user-1", nil, statusTemplate(template.ChannelEmail))
		assert.Error(t, err)
	})
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (*preference.Preference, error) {
	return nil, errors.New("store unavailable")
}

func (failingStore) Upsert(context.Context, preference.Preference) error {
	return errors.New("store unavailable")
}
