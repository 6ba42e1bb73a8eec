package migrations

import "embed"

// FS holds the migration scripts, applied in filename order.
//
//go:embed *.sql
var FS embed.FS
