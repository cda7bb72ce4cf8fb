// Package migrations embeds the audit store schema into the binary.
package migrations

import "embed"

// FS holds the migration files at its root, ready for auditdb.DB.Migrate.
//
//go:embed *.sql
var FS embed.FS
