// Package migrations embeds the PostgreSQL schema migrations applied by goose
// on server start when the postgres storage driver is selected.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
