// Package db carries the SQL migrations so release builds can run them
// without the source tree on disk.
package db

import "embed"

//go:embed migrations
var Migrations embed.FS
