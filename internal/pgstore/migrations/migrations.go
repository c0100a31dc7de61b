// Package migrations embeds the goose migrations of the Postgres schema
// store.
package migrations

import "embed"

// Migrations holds the SQL migration files.
//
//go:embed *.sql
var Migrations embed.FS
