// Package migrations embeds the inventory schema migrations into the
// binary so no SQL files are needed on disk at runtime.
package migrations

import "embed"

// FS holds every *.sql migration at its root.
//
//go:embed *.sql
var FS embed.FS
