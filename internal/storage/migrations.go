package storage

import "embed"

// Migrations holds the schema migrations applied at service start
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations holding the files
const MigrationsDir = "migrations"
