// Package migrations embeds the SQL migrations for the record stores.
package migrations

import "embed"

// SQLite holds the migrations for the SQLite backend.
//
//go:embed sqlite/*.sql
var SQLite embed.FS

// Postgres holds the migrations for the PostgreSQL backend.
//
//go:embed postgres/*.sql
var Postgres embed.FS
