// Package file provides the TOML file implementation of driven.ConfigStore.
//
// Keys use dot notation in code and are stored as nested tables on disk:
// "rotation.interval" is written as
//
//	[rotation]
//	interval = "24h0m0s"
package file
