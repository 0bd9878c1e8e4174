// Package redis connects the shared Redis instance used by the preference
// limiter for frequency-cap marks and daily send counters. Connect retries
// until the server is reachable; Healthcheck plugs into the readiness probe.
package redis
