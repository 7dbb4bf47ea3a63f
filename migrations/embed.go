// Package migrations embeds the SQLite schema.
package migrations

import "embed"

// FS holds the NNN_name.sql migration files
//
//go:embed *.sql
var FS embed.FS

// Dir is the root of FS passed to the migrator
const Dir = "."
