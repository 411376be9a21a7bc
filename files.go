package auth

import "embed"

// Schema migrations ship with the package so hosts can apply them with
// whatever migration runner they already use.
//
//go:embed data/sql/migrations
var migrations embed.FS

// GetMigrationsFS exposes the embedded SQL migrations.
func GetMigrationsFS() embed.FS {
	return migrations
}
