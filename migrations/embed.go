// Package migrations holds the schema of the local progress store. Files
// are applied in name order and recorded in schema_migrations.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed *.sql
var files embed.FS

// FS returns the migration files
func FS() fs.FS {
	return files
}
