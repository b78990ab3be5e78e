// Package migrations embeds the spool schema into the binary so sqlite:
// channels can create their tables without SQL files on disk.
package migrations

import (
	"embed"

	"github.com/georgevio/oml4go/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
