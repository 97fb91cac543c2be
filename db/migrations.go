// Package db embeds the SQL schema migrations, one directory per dialect.
package db

import "embed"

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var Migrations embed.FS
