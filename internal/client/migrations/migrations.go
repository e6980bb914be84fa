// Package migrations embeds the goose migrations for the local encrypted
// store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
