// Package sqlite provides a SQLite-based implementation of the driven storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements two store interfaces
// through a single database connection:
//
//   - SchedulerStore: Task journal and cycle history
//   - TunnelConfigStore: Tunnel configurations keyed by persistent reference
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// Timestamps are UTC text with a fixed nine-digit fraction so that ORDER BY
// on them is chronological. Keys are base64 text and addresses a JSON array
// of CIDR prefixes.
//
// # Data Location
//
// By default, the database is stored at ~/.keyward/data/keyward.db with
// mode 0600.
//
// # Thread Safety
//
// All operations are safe for concurrent use. Pragmas are set in the DSN so
// every pooled connection gets WAL, busy_timeout and foreign keys.
// TunnelConfigStore.Update and SchedulerStore.DeleteTask run in transactions.
package sqlite
