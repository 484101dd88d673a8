// Package migrations holds the numbered schema scripts of the keyward
// database. Each NNN_name.up.sql runs once, in version order.
package migrations

import "embed"

// FS is the set of migration scripts compiled into the binary.
//
//go:embed *.up.sql *.down.sql
var FS embed.FS
