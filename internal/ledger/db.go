package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open opens (or creates) the ledger database at dbPath and brings its
// schema up to the current version.
func Open(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("open: empty db path")
	}

	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("open: create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open: sql open: %w", err)
	}

	if err := prepare(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// OpenInMemory opens a fresh in-memory ledger database. It runs the same
// pragma and migration path as the durable variant, so behavior is
// identical; it exists for tests and ephemeral runs.
func OpenInMemory() (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open: sql open: %w", err)
	}

	// A pooled second connection would see an empty database.
	db.SetMaxOpenConns(1)

	if err := prepare(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// OpenRaw opens the database without running migrations. Used by tooling
// that inspects the stored schema version.
func OpenRaw(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("open: empty db path")
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=rw")
	if err != nil {
		return nil, fmt.Errorf("open: sql open: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open: ping: %w", err)
	}

	return db, nil
}

func prepare(db *sql.DB) error {
	if err := enablePragmas(db); err != nil {
		return fmt.Errorf("open: enable pragmas: %w", err)
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("open: ping: %w", err)
	}

	if err := Migrate(db); err != nil {
		return fmt.Errorf("open: migrate: %w", err)
	}

	return nil
}

func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}
