// Package store persists workbooks and the history of their sheets in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lherron/wbmerge/internal/db"
	"github.com/lherron/wbmerge/internal/events"
)

// ErrNotFound is returned when no workbook is stored under a name.
var ErrNotFound = errors.New("workbook not found")

// Store saves workbooks by name. Every save also records one revision per
// sheet edit it has not seen before.
type Store struct {
	db     *db.DB
	events *events.Writer
}

// New creates a new Store wrapping the given database connection.
func New(database *db.DB) *Store {
	return &Store{db: database, events: events.NewWriter(database.DB)}
}

// Open opens the database at path. Call Migrate before first use.
func Open(path string) (*Store, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	return New(database), nil
}

// DB returns the underlying database connection (for read-only queries).
func (s *Store) DB() *db.DB {
	return s.db
}

// Migrate applies pending schema migrations.
func (s *Store) Migrate() error {
	return s.db.Migrate()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx executes fn within a transaction. If fn returns nil, the transaction
// is committed; otherwise it is rolled back.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
