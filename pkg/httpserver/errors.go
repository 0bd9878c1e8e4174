package httpserver

import "errors"

var (
	// ErrStart wraps listener or serve failures during Run.
	ErrStart = errors.New("failed to start HTTP server")
	// ErrShutdown wraps a graceful shutdown that ran out of time.
	ErrShutdown = errors.New("failed to shutdown HTTP server gracefully")
)
