package database

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed migrations/*.sql
var EmbeddedMigrations embed.FS

// Migrations returns the embedded migrations rooted at their directory.
func Migrations() (fs.FS, error) {
	sub, err := fs.Sub(EmbeddedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return sub, nil
}
