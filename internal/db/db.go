package db

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
	path string
}

// Open opens a SQLite database at the given path and applies pragmas
func Open(path string) (*DB, error) {
	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragma %q: %w", pragma, err)
		}
	}

	return &DB{DB: db, path: path}, nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Migration is one embedded schema file, such as 000002_workbook_events.sql.
type Migration struct {
	File      string
	Version   string
	Name      string
	AppliedAt string
}

func newMigration(file string) Migration {
	base := strings.TrimSuffix(file, ".sql")
	version, name, _ := strings.Cut(base, "_")
	return Migration{File: file, Version: version, Name: name}
}

// Status splits the embedded migrations into those already recorded in
// schema_migrations and those still to run.
type Status struct {
	Applied []Migration
	Pending []Migration
}

// Current returns the file of the last applied migration, or "none".
func (s Status) Current() string {
	if len(s.Applied) == 0 {
		return "none"
	}
	return s.Applied[len(s.Applied)-1].File
}

// UpToDate reports whether no migration is pending.
func (s Status) UpToDate() bool {
	return len(s.Pending) == 0
}

// migrations lists the embedded migrations in the order they apply.
func migrations() ([]Migration, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	out := make([]Migration, len(files))
	for i, f := range files {
		out[i] = newMigration(f)
	}
	return out, nil
}

// Migrate runs all pending migrations
func (db *DB) Migrate() error {
	_, err := db.Apply()
	return err
}

// Apply runs each pending migration in its own transaction and returns the
// ones it ran.
func (db *DB) Apply() ([]Migration, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	status, err := db.Status()
	if err != nil {
		return nil, err
	}

	var applied []Migration
	for _, m := range status.Pending {
		if err := db.apply(m); err != nil {
			return applied, err
		}
		applied = append(applied, m)
	}
	return applied, nil
}

func (db *DB) apply(m Migration) error {
	content, err := migrationsFS.ReadFile("migrations/" + m.File)
	if err != nil {
		return fmt.Errorf("failed to read migration %s: %w", m.File, err)
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", m.File, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(content)); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", m.File, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.File); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.File, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.File, err)
	}
	return nil
}

// Status reports which embedded migrations have run. A database without a
// schema_migrations table has every migration pending.
func (db *DB) Status() (Status, error) {
	all, err := migrations()
	if err != nil {
		return Status{}, err
	}

	var tables int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_migrations'`).Scan(&tables)
	if err != nil {
		return Status{}, fmt.Errorf("failed to check for schema_migrations table: %w", err)
	}
	if tables == 0 {
		return Status{Pending: all}, nil
	}

	appliedAt := make(map[string]string)
	rows, err := db.Query("SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return Status{}, fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var version, at string
		if err := rows.Scan(&version, &at); err != nil {
			return Status{}, fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedAt[version] = at
	}
	if err := rows.Err(); err != nil {
		return Status{}, fmt.Errorf("error iterating migrations: %w", err)
	}

	var status Status
	for _, m := range all {
		if at, ok := appliedAt[m.File]; ok {
			m.AppliedAt = at
			status.Applied = append(status.Applied, m)
		} else {
			status.Pending = append(status.Pending, m)
		}
	}
	return status, nil
}

// RequiresMigrationError returns nil when the store schema is current, and
// otherwise an error naming the database path and its schema version.
func (db *DB) RequiresMigrationError() error {
	status, err := db.Status()
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if status.UpToDate() {
		return nil
	}
	return fmt.Errorf("database at %s (version: %s) requires migration: %d pending migration(s). Run 'wbmerge store migrate' to update",
		db.path, status.Current(), len(status.Pending))
}
