// Package migrations embeds SQL migration files into the binary so the
// backend can migrate its schema without the files present on disk.
package migrations

import (
	"embed"

	"github.com/eyamastour/backend-BrightMind/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
