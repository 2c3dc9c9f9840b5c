// Package migrations embeds the schema for both record store backends.
package migrations

import "embed"

// Postgres holds the goose migrations for the pgx store, rooted at "postgres".
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite holds the goose migrations for the sqlite store, rooted at "sqlite".
//
//go:embed sqlite/*.sql
var SQLite embed.FS
