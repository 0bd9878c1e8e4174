package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicflow/notifier/pkg/analytics"
	"github.com/civicflow/notifier/pkg/dispatch"
	"github.com/civicflow/notifier/pkg/template"
)

// seedDeliveries enqueues and attempts notifications so the dispatch storage
// holds a known outcome mix for one template.
func seedDeliveries(t *testing.T, storage *dispatch.MemoryStorage, templateID string, at time.Time) {
	t.Helper()
	ctx := context.Background()

	record := func(n *dispatch.QueuedNotification, attempts []bool) {
		require.NoError(t, storage.CreateNotification(ctx, n))
		for i, ok := range attempts {
			require.NoError(t, storage.RecordAttempt(ctx, dispatch.DeliveryAttempt{
				NotificationID: n.ID,
				AttemptNumber:  i + 1,
				Timestamp:      at,
				Success:        ok,
			}))
		}
	}

	// Delivered first try.
	record(&dispatch.QueuedNotification{
		ID: uuid.New(), TemplateID: templateID, UserID: "u1",
		Channel: template.ChannelEmail, Address: "a@x", Body: "b",
		Status: dispatch.StatusSent, ScheduledAt: at, CreatedAt: at,
	}, []bool{true})

	// Delivered after one transient failure; still one Sent, one Delivered.
	record(&dispatch.QueuedNotification{
		ID: uuid.New(), TemplateID: templateID, UserID: "u2",
		Channel: template.ChannelEmail, Address: "b@x", Body: "b",
		Status: dispatch.StatusSent, ScheduledAt: at, CreatedAt: at,
	}, []bool{false, true})

	// Terminally failed.
	record(&dispatch.QueuedNotification{
		ID: uuid.New(), TemplateID: templateID, UserID: "u3",
		Channel: template.ChannelEmail, Address: "c@x", Body: "b",
		Status: dispatch.StatusFailed, ScheduledAt: at, CreatedAt: at,
	}, []bool{false, false, false})

	// Still pending with no attempts; must not count as sent.
	require.NoError(t, storage.CreateNotification(ctx, &dispatch.QueuedNotification{
		ID: uuid.New(), TemplateID: templateID, UserID: "u4",
		Channel: template.ChannelEmail, Address: "d@x", Body: "b",
		Status: dispatch.StatusPending, ScheduledAt: at.Add(time.Hour), CreatedAt: at,
	}))
}

func TestAggregator_Recompute(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	noon := day.Add(12 * time.Hour)

	storage := dispatch.NewMemoryStorage()
	seedDeliveries(t, storage, "tmpl-1", noon)

	engagement := analytics.NewMemoryEngagementRecorder()
	store := analytics.NewMemoryStore()

	agg, err := analytics.NewAggregator(storage, engagement, store)
	require.NoError(t, err)

	stats, err := agg.Recompute(ctx, "tmpl-1", noon)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Sent)
	assert.Equal(t, 2, stats.Delivered)
	assert.Equal(t, 1, stats.Failed)
	assert.InDelta(t, 2.0/3.0, stats.DeliveryRate, 1e-9)
	assert.Zero(t, stats.OpenRate)
	assert.Equal(t, day, stats.Date, "date is normalized to UTC midnight")

	t.Run("idempotent on rerun", func(t *testing.T) {
		again, err := agg.Recompute(ctx, "tmpl-1", noon)
		require.NoError(t, err)
		assert.Equal(t, stats.Sent, again.Sent)
		assert.Equal(t, stats.Delivered, again.Delivered)
		assert.Equal(t, stats.Failed, again.Failed)

		stored, err := store.Get(ctx, "tmpl-1", day)
		require.NoError(t, err)
		assert.Equal(t, 3, stored.Sent, "upsert replaces, never accumulates")
	})

	t.Run("other days empty", func(t *testing.T) {
		other, err := agg.Recompute(ctx, "tmpl-1", day.AddDate(0, 0, -1))
		require.NoError(t, err)
		assert.Zero(t, other.Sent)
		assert.Zero(t, other.DeliveryRate)
	})
}

func TestAggregator_Engagement(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	noon := day.Add(12 * time.Hour)

	storage := dispatch.NewMemoryStorage()
	seedDeliveries(t, storage, "tmpl-1", noon)

	engagement := analytics.NewMemoryEngagementRecorder()
	store := analytics.NewMemoryStore()

	nid := uuid.New()
	// Duplicate opens for one notification count once.
	for i := 0; i < 3; i++ {
		require.NoError(t, engagement.Record(ctx, analytics.Engagement{
			NotificationID: nid, TemplateID: "tmpl-1",
			Kind: analytics.EngagementOpen, At: noon,
		}))
	}
	require.NoError(t, engagement.Record(ctx, analytics.Engagement{
		NotificationID: uuid.New(), TemplateID: "tmpl-1",
		Kind: analytics.EngagementOpen, At: noon,
	}))
	require.NoError(t, engagement.Record(ctx, analytics.Engagement{
		NotificationID: nid, TemplateID: "tmpl-1",
		Kind: analytics.EngagementClick, At: noon,
	}))

	agg, err := analytics.NewAggregator(storage, engagement, store)
	require.NoError(t, err)

	stats, err := agg.Recompute(ctx, "tmpl-1", day)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Opened)
	assert.Equal(t, 1, stats.Clicked)
	assert.InDelta(t, 1.0, stats.OpenRate, 1e-9) // 2 opened / 2 delivered
	assert.InDelta(t, 0.5, stats.ClickRate, 1e-9)
}

func TestAggregator_RecomputeAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	storage := dispatch.NewMemoryStorage()
	seedDeliveries(t, storage, "tmpl-a", day.Add(time.Hour))

	store := analytics.NewMemoryStore()
	agg, err := analytics.NewAggregator(storage, analytics.NewMemoryEngagementRecorder(), store)
	require.NoError(t, err)

	lister := analytics.TemplateListerFunc(func(context.Context) ([]string, error) {
		return []string{"tmpl-a", "tmpl-b"}, nil
	})
	require.NoError(t, agg.RecomputeAll(ctx, lister, day))

	a, err := store.Get(ctx, "tmpl-a", day)
	require.NoError(t, err)
	assert.Equal(t, 3, a.Sent)

	// A template with no traffic still gets a zero row.
	b, err := store.Get(ctx, "tmpl-b", day)
	require.NoError(t, err)
	assert.Zero(t, b.Sent)
}

func TestDay(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 22:00 EST on the 28th is 03:00 UTC on the 29th.
	local := time.Date(2026, 1, 28, 22, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC), analytics.Day(local))
}
