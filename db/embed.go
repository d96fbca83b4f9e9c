// Package db embeds the goose SQL migrations.
package db

import "embed"

// Migrations holds migrations/*.sql. Use MigrationsDir as the goose directory.
//
//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"
