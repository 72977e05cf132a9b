package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added UNIQUE index on substitutions(category, synthetic_key)
const currentSchemaVersion = 1

// Store is a persistent consistency-cache backend backed by SQLite.
// It implements cache.Backend; wire it in with cache.WithBackend.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and applies
// required pragmas and migrations. Idempotent: safe to call on an
// existing database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time; a single connection
	// avoids SQLITE_BUSY under concurrent scrub workers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Lookup implements cache.Backend.
func (s *Store) Lookup(category, originalHash string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRow(
		`SELECT payload FROM substitutions WHERE category = ? AND original_hash = ?`,
		category, originalHash,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup substitution: %w", err)
	}
	return payload, true, nil
}

// SeenSynthetic implements cache.Backend.
func (s *Store) SeenSynthetic(category, syntheticKey string) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM substitutions WHERE category = ? AND synthetic_key = ?`,
		category, syntheticKey,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reverse lookup: %w", err)
	}
	return true, nil
}

// Insert implements cache.Backend. The cache layer serializes inserts
// per category, so a constraint violation here indicates either a
// concurrent process sharing the database or a logic error; both
// surface as errors rather than silent overwrites.
func (s *Store) Insert(category, originalHash, syntheticKey string, payload []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO substitutions (category, original_hash, synthetic_key, payload)
		 VALUES (?, ?, ?, ?)`,
		category, originalHash, syntheticKey, payload,
	)
	if err != nil {
		return fmt.Errorf("insert substitution: %w", err)
	}
	return nil
}

// Count returns the number of stored substitutions, optionally filtered
// by category (empty means all). Used by the CLI to report cache size.
func (s *Store) Count(category string) (int64, error) {
	var n int64
	var err error
	if category == "" {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM substitutions`).Scan(&n)
	} else {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM substitutions WHERE category = ?`, category).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count substitutions: %w", err)
	}
	return n, nil
}

// Close closes the database connection. Stored substitutions persist;
// that is the point of this backend.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the reverse-uniqueness index for databases created
// before v1. New databases get it from schema.sql; CREATE UNIQUE INDEX
// IF NOT EXISTS is a no-op there.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_substitutions_synthetic
		ON substitutions(category, synthetic_key)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
