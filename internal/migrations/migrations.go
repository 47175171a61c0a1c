// Package migrations embeds the schema manager's (C7) goose migration set.
// Every migration is additive DDL: goose's own version table gives the
// "already applied" check the design calls for, so running Up against an
// up-to-date database is a no-op and concurrent app traffic never races
// against exclusive locks.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
