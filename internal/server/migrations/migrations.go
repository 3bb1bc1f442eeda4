// Package migrations embeds the goose migrations for each supported SQL
// dialect. Files live in a directory named after the dialect.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite3/*.sql
var Migrations embed.FS
