package engine

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring the engine.
type Option func(*options)

type options struct {
	queueSize        int
	eventWorkers     int
	producerPatience time.Duration
	analyticsAt      time.Duration // offset past UTC midnight for the nightly rollup
	logger           *slog.Logger
}

func defaultOptions() *options {
	return &options{
		queueSize:        256,
		eventWorkers:     4,
		producerPatience: 2 * time.Second,
		analyticsAt:      30 * time.Minute,
		logger:           slog.Default(),
	}
}

// WithQueueSize bounds the internal event channel.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithEventWorkers sets how many goroutines consume fired events.
func WithEventWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.eventWorkers = n
		}
	}
}

// WithProducerPatience sets how long FireEvent blocks on a full channel
// before reporting back-pressure.
func WithProducerPatience(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.producerPatience = d
		}
	}
}

// WithAnalyticsOffset sets when past UTC midnight the nightly analytics
// rollup for the previous day runs.
func WithAnalyticsOffset(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 && d < 24*time.Hour {
			o.analyticsAt = d
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
