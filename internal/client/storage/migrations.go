package storage

import "embed"

// Migrations holds the goose migrations for the local store.
//
//go:embed migrations/*.sql
var Migrations embed.FS
