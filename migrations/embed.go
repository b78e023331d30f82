// Package migrations embeds the SQL schema applied by cmd/migrate and, when
// database.auto_migrate is set, by the server at startup.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
