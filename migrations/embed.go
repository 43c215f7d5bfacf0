// Package migrations embeds the coordinator's SQL schema files so the binary
// can migrate its database without the files on disk.
package migrations

import (
	"embed"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
