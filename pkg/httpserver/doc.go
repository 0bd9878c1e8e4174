// Package httpserver wraps net/http with graceful shutdown, configurable
// timeouts, and health probes for the notifier API surface.
//
// Run starts the server and blocks until the context is cancelled, an
// interrupt or TERM signal arrives, or the listener fails. Shutdown drains
// in-flight requests within the configured deadline. Errors are wrapped with
// the ErrStart and ErrShutdown sentinels for errors.Is checks.
//
//	srv := httpserver.New(
//		httpserver.WithAddr(":8080"),
//		httpserver.WithShutdownTimeout(10*time.Second),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// HealthCheckHandler doubles as a liveness probe (no checks supplied) and a
// readiness probe (database and cache pings supplied).
package httpserver
