// Package sqlite provides a SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements two store interfaces
// through a single database connection:
//
//   - ResourceStore: mirrored notebooks, chunks and notes
//   - SchedulerStore: daemon task state and run history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files
// and runs in its own transaction.
//
// # Data Location
//
// By default, the database is stored at ~/.notesync/data/notesync.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
