package dispatch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicflow/notifier/pkg/channel"
	"github.com/civicflow/notifier/pkg/dispatch"
	"github.com/civicflow/notifier/pkg/template"
)

func newTestWorker(t *testing.T, storage dispatch.Storage, adapters ...channel.Adapter) *dispatch.Worker {
	t.Helper()

	w, err := dispatch.NewWorker(storage,
		dispatch.WithPollInterval(10*time.Millisecond),
		dispatch.WithReapInterval(20*time.Millisecond),
		dispatch.WithBatchSize(10),
	)
	require.NoError(t, err)
	for _, a := range adapters {
		w.RegisterAdapter(a)
	}
	return w
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestWorker_DeliversPending(t *testing.T) {
	t.Parallel()

	storage := dispatch.NewMemoryStorage()
	capture := channel.NewCaptureAdapter(template.ChannelEmail)
	w := newTestWorker(t, storage, capture)

	ctx := context.Background()
	n := pendingNotification()
	require.NoError(t, storage.CreateNotification(ctx, n))

	require.NoError(t, w.Start(ctx))
	defer func() { require.NoError(t, w.Stop()) }()

	waitFor(t, func() bool {
		got, err := storage.GetNotification(ctx, n.ID)
		return err == nil && got.Status == dispatch.StatusSent
	})

	msgs := capture.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, n.ID, msgs[0].ID)
	assert.Equal(t, "user@example.com", msgs[0].Address)

	attempts, err := storage.ListAttempts(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Success)
	assert.Equal(t, 1, attempts[0].AttemptNumber)
	assert.Equal(t, "capture-email", attempts[0].ProviderName)
}

func TestWorker_TransientFailureRequeues(t *testing.T) {
	t.Parallel()

	storage := dispatch.NewMemoryStorage()
	capture := channel.NewCaptureAdapter(template.ChannelEmail)
	capture.Err = errors.New("provider timeout")
	w := newTestWorker(t, storage, capture)

	ctx := context.Background()
	n := pendingNotification()
	require.NoError(t, storage.CreateNotification(ctx, n))

	require.NoError(t, w.Start(ctx))
	defer func() { require.NoError(t, w.Stop()) }()

	waitFor(t, func() bool {
		got, err := storage.GetNotification(ctx, n.ID)
		return err == nil && got.Status == dispatch.StatusPending && got.RetryCount == 1
	})

	got, err := storage.GetNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, got.ScheduledAt.After(time.Now()), "retry must be scheduled in the future")

	attempts, err := storage.ListAttempts(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.False(t, attempts[0].Success)
	assert.Equal(t, "provider timeout", attempts[0].ErrorMessage)
}

func TestWorker_PermanentFailureGoesTerminal(t *testing.T) {
	t.Parallel()

	storage := dispatch.NewMemoryStorage()
	capture := channel.NewCaptureAdapter(template.ChannelEmail)
	capture.Err = channel.Permanent("hard_bounce", errors.New("address rejected"))
	w := newTestWorker(t, storage, capture)

	ctx := context.Background()
	n := pendingNotification()
	require.NoError(t, storage.CreateNotification(ctx, n))

	require.NoError(t, w.Start(ctx))
	defer func() { require.NoError(t, w.Stop()) }()

	waitFor(t, func() bool {
		got, err := storage.GetNotification(ctx, n.ID)
		return err == nil && got.Status == dispatch.StatusFailed
	})

	got, err := storage.GetNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RetryCount, "permanent failure must not burn further retries")

	attempts, err := storage.ListAttempts(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "hard_bounce", attempts[0].ErrorCode)
}

func TestWorker_MissingAdapterFailsPermanently(t *testing.T) {
	t.Parallel()

	storage := dispatch.NewMemoryStorage()
	// Only email is served; the SMS row can never be delivered.
	w := newTestWorker(t, storage, channel.NewCaptureAdapter(template.ChannelEmail))

	ctx := context.Background()
	n := pendingNotification()
	n.Channel = template.ChannelSMS
	n.Address = "+15550100"
	require.NoError(t, storage.CreateNotification(ctx, n))

	require.NoError(t, w.Start(ctx))
	defer func() { require.NoError(t, w.Stop()) }()

	waitFor(t, func() bool {
		got, err := storage.GetNotification(ctx, n.ID)
		return err == nil && got.Status == dispatch.StatusFailed
	})
}

func TestWorker_StartValidation(t *testing.T) {
	t.Parallel()

	t.Run("nil storage", func(t *testing.T) {
		t.Parallel()

		_, err := dispatch.NewWorker(nil)
		assert.ErrorIs(t, err, dispatch.ErrStorageNil)
	})

	t.Run("no adapters", func(t *testing.T) {
		t.Parallel()

		w, err := dispatch.NewWorker(dispatch.NewMemoryStorage())
		require.NoError(t, err)
		assert.ErrorIs(t, w.Start(context.Background()), dispatch.ErrNoAdapters)
	})

	t.Run("double start rejected", func(t *testing.T) {
		t.Parallel()

		w := newTestWorker(t, dispatch.NewMemoryStorage(),
			channel.NewCaptureAdapter(template.ChannelEmail))
		require.NoError(t, w.Start(context.Background()))
		assert.Error(t, w.Start(context.Background()))
		require.NoError(t, w.Stop())
	})

	t.Run("stop before start rejected", func(t *testing.T) {
		t.Parallel()

		w := newTestWorker(t, dispatch.NewMemoryStorage(),
			channel.NewCaptureAdapter(template.ChannelEmail))
		assert.Error(t, w.Stop())
	})
}

func TestWorker_ReapsStaleClaims(t *testing.T) {
	t.Parallel()

	storage := dispatch.NewMemoryStorage()
	ctx := context.Background()

	n := pendingNotification()
	require.NoError(t, storage.CreateNotification(ctx, n))

	// Simulate a crashed worker holding an expired claim.
	claimed, err := storage.ClaimBatch(ctx, uuid.New(), 1, -time.Second)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	capture := channel.NewCaptureAdapter(template.ChannelEmail)
	w := newTestWorker(t, storage, capture)
	require.NoError(t, w.Start(ctx))
	defer func() { require.NoError(t, w.Stop()) }()

	// The reaper requeues the row and the poll loop then delivers it.
	waitFor(t, func() bool {
		got, err := storage.GetNotification(ctx, n.ID)
		return err == nil && got.Status == dispatch.StatusSent
	})
	assert.Zero(t, claimed[0].RetryCount)
}
