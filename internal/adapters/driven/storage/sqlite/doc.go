// Package sqlite provides a SQLite-based implementation of the note
// persistence ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. One database connection backs two stores:
//
//   - DocumentStore: rendered notes, filed by category
//   - VectorEntryStore: similarity-index vectors
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files.
//
// # Data Location
//
// By default, the database is stored at ~/.kbnote/data/notes.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. The store relies on SQLite
// locking in WAL mode.
package sqlite
