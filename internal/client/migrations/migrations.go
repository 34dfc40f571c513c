// Package migrations embeds the sqlite schema of the client's local store,
// applied by goose when the CLI opens its database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
