package dispatch

import (
	"log/slog"
	"time"
)

// WorkerOption is a functional option for configuring a worker.
type WorkerOption func(*workerOptions)

type workerOptions struct {
	pollInterval time.Duration
	reapInterval time.Duration
	lockTimeout  time.Duration
	sendTimeout  time.Duration
	batchSize    int
	concurrency  int
	logger       *slog.Logger
}

// WithPollInterval sets how often the worker checks for due notifications.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithReapInterval sets how often expired claims are returned to pending.
func WithReapInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.reapInterval = d
		}
	}
}

// WithLockTimeout sets the claim lock duration; it should exceed the send
// timeout or claims will be reaped mid-send.
func WithLockTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithSendTimeout bounds a single adapter call.
func WithSendTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.sendTimeout = d
		}
	}
}

// WithBatchSize sets the maximum notifications claimed per poll.
func WithBatchSize(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithConcurrency sets the maximum in-flight adapter calls.
func WithConcurrency(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithWorkerLogger sets the logger for the worker.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
