// Package migrations embeds the Postgres schema so the service can apply it
// at startup without the SQL files on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
