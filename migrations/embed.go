// Package migrations embeds the storefront schema.
package migrations

import "embed"

// FS holds every *.up.sql migration, applied in name order.
//
//go:embed *.sql
var FS embed.FS
