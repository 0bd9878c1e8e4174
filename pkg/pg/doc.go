// Package pg bootstraps the PostgreSQL pool backing the durable dispatch
// queue and analytics tables: pool construction with startup retries,
// embedded goose migrations, a health check, and error helpers for the
// pgx/v5 driver.
package pg
