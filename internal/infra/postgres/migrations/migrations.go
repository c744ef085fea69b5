// Package migrations holds the Postgres schema, applied with bun/migrate.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is populated by the init functions of the numbered files.
var Migrations = migrate.NewMigrations()
