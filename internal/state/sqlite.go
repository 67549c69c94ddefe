// Package state persists the lineage graph in a local SQLite database
// and answers impact queries against it.
package state

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the durable home of the graph. One store maps to one
// database file; ":memory:" works for tests.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore returns an unopened store.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open connects to the database file and applies the session pragmas.
// Foreign keys must be on for cascade deletes to work.
func (s *SQLiteStore) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database %s: %w", path, err)
	}
	// One connection keeps pragmas session-wide and makes ":memory:"
	// behave like a single database.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return fmt.Errorf("apply %s: %w", pragma, err)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping database %s: %w", path, err)
	}
	s.db = db
	s.path = path
	return nil
}

// Close releases the connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// DB exposes the underlying handle for migrations.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}
