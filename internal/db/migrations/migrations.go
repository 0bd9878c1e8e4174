// Package migrations embeds the goose SQL migrations for the durable
// dispatch, ledger, and analytics tables.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
