package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civicflow/notifier/pkg/channel"
	"github.com/civicflow/notifier/pkg/template"
)

// Worker drains the dispatch queue: it claims batches of due notifications,
// hands each to the adapter serving its channel under a per-send timeout, and
// records every outcome in the delivery ledger. Adapter calls are the only
// blocking point and never run while holding shared state.
type Worker struct {
	storage  Storage
	adapters map[template.Channel]channel.Adapter
	workerID uuid.UUID
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex

	pollInterval time.Duration
	reapInterval time.Duration
	lockTimeout  time.Duration
	sendTimeout  time.Duration
	batchSize    int
	logger       *slog.Logger

	cancel context.CancelFunc
}

// NewWorker creates a dispatch worker over the given storage.
func NewWorker(storage Storage, opts ...WorkerOption) (*Worker, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}

	options := &workerOptions{
		pollInterval: 5 * time.Second,
		reapInterval: time.Minute,
		lockTimeout:  2 * time.Minute,
		sendTimeout:  30 * time.Second,
		batchSize:    20,
		concurrency:  4,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Worker{
		storage:      storage,
		adapters:     make(map[template.Channel]channel.Adapter),
		workerID:     uuid.New(),
		sem:          make(chan struct{}, options.concurrency),
		pollInterval: options.pollInterval,
		reapInterval: options.reapInterval,
		lockTimeout:  options.lockTimeout,
		sendTimeout:  options.sendTimeout,
		batchSize:    options.batchSize,
		logger:       options.logger,
	}, nil
}

// RegisterAdapter wires a channel adapter. The last adapter registered for a
// channel wins.
func (w *Worker) RegisterAdapter(a channel.Adapter) {
	if a == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.adapters[a.Channel()] = a
}

// Start begins polling in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return fmt.Errorf("worker already started")
	}
	if len(w.adapters) == 0 {
		w.mu.Unlock()
		return ErrNoAdapters
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	go w.run(ctx)
	go w.reapLoop(ctx)

	w.logger.Info("dispatch worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Int("batch_size", w.batchSize),
		slog.Int("max_concurrent", cap(w.sem)))
	return nil
}

// Stop cancels polling and waits for in-flight sends to finish.
func (w *Worker) Stop() error {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return fmt.Errorf("worker not started")
	}
	cancel()

	w.logger.Info("dispatch worker stopping, draining in-flight sends",
		slog.String("worker_id", w.workerID.String()))
	w.wg.Wait()
	w.logger.Info("dispatch worker stopped",
		slog.String("worker_id", w.workerID.String()))
	return nil
}

// Run returns a function suitable for errgroup: start, wait for ctx, stop.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return w.Stop()
	}
}

func (w *Worker) run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick claims one batch and dispatches each item to the adapter pool.
func (w *Worker) tick(ctx context.Context) {
	batch, err := w.storage.ClaimBatch(ctx, w.workerID, w.batchSize, w.lockTimeout)
	if err != nil {
		w.logger.Error("failed to claim batch",
			slog.String("worker_id", w.workerID.String()),
			slog.Any("error", err))
		return
	}

	for _, n := range batch {
		select {
		case <-ctx.Done():
			return
		case w.sem <- struct{}{}:
		}

		w.wg.Add(1)
		go func(n QueuedNotification) {
			defer w.wg.Done()
			defer func() { <-w.sem }()
			w.process(n)
		}(n)
	}
}

// process executes one send attempt. It deliberately uses a fresh context so
// graceful shutdown lets claimed sends run to completion or timeout.
func (w *Worker) process(n QueuedNotification) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("adapter panicked",
				slog.String("notification_id", n.ID.String()),
				slog.String("channel", string(n.Channel)),
				slog.Any("panic", r))
			w.finishFailure(n, fmt.Errorf("panic in adapter: %v", r), time.Duration(0))
		}
	}()

	w.mu.Lock()
	adapter, ok := w.adapters[n.Channel]
	w.mu.Unlock()

	if !ok {
		// No adapter will ever serve this channel; retrying cannot help.
		w.finishFailure(n, channel.Permanent("no_adapter",
			fmt.Errorf("%w: %s", ErrNoAdapter, n.Channel)), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.sendTimeout)
	defer cancel()

	start := time.Now()
	providerID, err := adapter.Send(ctx, channel.Message{
		ID:       n.ID,
		UserID:   n.UserID,
		Channel:  n.Channel,
		Address:  n.Address,
		Subject:  n.Subject,
		Body:     n.Body,
		HTMLBody: n.HTMLBody,
		Context:  n.Context,
	})
	elapsed := time.Since(start)

	if err != nil {
		w.finishFailure(n, err, elapsed)
		return
	}
	w.finishSuccess(n, adapter.Name(), providerID, elapsed)
}

func (w *Worker) finishSuccess(n QueuedNotification, provider, providerID string, elapsed time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := w.storage.RecordAttempt(ctx, DeliveryAttempt{
		ID:             uuid.New(),
		NotificationID: n.ID,
		AttemptNumber:  n.RetryCount + 1,
		Timestamp:      time.Now(),
		ProviderName:   provider,
		Success:        true,
		ResponseTimeMs: elapsed.Milliseconds(),
	}); err != nil {
		w.logger.Error("failed to record delivery attempt",
			slog.String("notification_id", n.ID.String()),
			slog.Any("error", err))
	}

	if err := w.storage.MarkSent(ctx, n.ID, time.Now()); err != nil {
		w.logger.Error("failed to mark notification sent",
			slog.String("notification_id", n.ID.String()),
			slog.Any("error", err))
		return
	}

	w.logger.Info("notification sent",
		slog.String("notification_id", n.ID.String()),
		slog.String("channel", string(n.Channel)),
		slog.String("provider", provider),
		slog.String("provider_message_id", providerID),
		slog.Duration("duration", elapsed))
}

func (w *Worker) finishFailure(n QueuedNotification, sendErr error, elapsed time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	permanent := channel.IsPermanent(sendErr)

	attempt := DeliveryAttempt{
		ID:             uuid.New(),
		NotificationID: n.ID,
		AttemptNumber:  n.RetryCount + 1,
		Timestamp:      time.Now(),
		Success:        false,
		ErrorMessage:   sendErr.Error(),
		ResponseTimeMs: elapsed.Milliseconds(),
	}
	var pe *channel.PermanentError
	if errors.As(sendErr, &pe) {
		attempt.ErrorCode = pe.Code
	}
	w.mu.Lock()
	a, ok := w.adapters[n.Channel]
	w.mu.Unlock()
	if ok {
		attempt.ProviderName = a.Name()
	}
	if err := w.storage.RecordAttempt(ctx, attempt); err != nil {
		w.logger.Error("failed to record delivery attempt",
			slog.String("notification_id", n.ID.String()),
			slog.Any("error", err))
	}

	if err := w.storage.Fail(ctx, n.ID, sendErr.Error(), permanent); err != nil {
		w.logger.Error("failed to update notification after failure",
			slog.String("notification_id", n.ID.String()),
			slog.Any("error", err))
		return
	}

	w.logger.Warn("notification send failed",
		slog.String("notification_id", n.ID.String()),
		slog.String("channel", string(n.Channel)),
		slog.Int("retry_count", n.RetryCount+1),
		slog.Bool("permanent", permanent),
		slog.Any("error", sendErr))
}

// reapLoop periodically requeues rows stuck in processing past their lock.
func (w *Worker) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(w.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reaped, err := w.storage.ReapStale(ctx)
			if err != nil {
				w.logger.Error("failed to reap stale claims", slog.Any("error", err))
				continue
			}
			if reaped > 0 {
				w.logger.Warn("requeued stale processing notifications",
					slog.Int("count", reaped))
			}
		}
	}
}
