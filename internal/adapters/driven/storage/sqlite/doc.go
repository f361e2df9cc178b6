// Package sqlite provides a unified SQLite-based implementation of the
// storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements every storage interface
// through a single database connection pool:
//
//   - BookmarkStore: Bookmark persistence
//   - TagStore: Tags and assignments, with transactional per-bookmark writes
//   - EmbeddingStore: Vectors keyed by bookmark and model version
//   - TextIndex: bm25 ranking over an FTS5 table kept in sync by triggers
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.tagmark/data/tagmark.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. Foreign keys are enabled on every connection so
// deleting a bookmark cascades to its assignments and embeddings.
package sqlite
