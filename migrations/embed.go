// Package migrations embeds the sqlite schema so binaries and tests migrate without a checkout.
package migrations

import "embed"

// FS holds the NNN_name.sql migration files
//
//go:embed *.sql
var FS embed.FS
