// Package logger builds the service's slog.Logger: functional options for
// format and level, attribute constructors for the identifiers that recur
// across the dispatch pipeline (user, notification, rule, template, channel),
// and a handler decorator that injects request-scoped context values into
// every record.
package logger
