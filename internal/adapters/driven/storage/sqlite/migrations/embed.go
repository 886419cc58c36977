// Package migrations embeds the versioned schema of the document store.
package migrations

import "embed"

// FS holds NNN_name.up.sql and NNN_name.down.sql pairs. Only .up.sql files
// are applied; NNN is the schema version.
//
//go:embed *.sql
var FS embed.FS
