// Package db carries the schema migrations and development fixtures.
package db

import (
	"embed"
	"io/fs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

//go:embed seed/fixtures.yml
var Fixtures []byte

// Migrations returns the migration files for driver ("postgres" or "sqlite").
func Migrations(driver string) (fs.FS, error) {
	if driver != "sqlite" {
		driver = "postgres"
	}
	return fs.Sub(migrations, "migrations/"+driver)
}
