package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is the schema version this build of the ledger writes.
const SchemaVersion = 4

// ErrSchemaTooNew is returned when the stored schema version is newer than
// this build understands. The caller must not touch the database in that
// state; downgrading is never attempted.
var ErrSchemaTooNew = errors.New("ledger schema version is newer than this build")

type migration struct {
	version int
	name    string
	apply   func(tx *sql.Tx) error
}

// migrations is the ordered upgrade pipeline. Every step must be idempotent:
// re-running a step against a database that already has its changes is a
// no-op, never an error.
var migrations = []migration{
	{
		version: 1,
		name:    "create joke_interactions",
		apply: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS joke_interactions (
					joke_id             TEXT PRIMARY KEY,
					navigated_ts        TEXT NULL,
					viewed_ts           TEXT NULL,
					saved_ts            TEXT NULL,
					shared_ts           TEXT NULL,
					setup_text          TEXT NULL,
					punchline_text      TEXT NULL,
					setup_image_url     TEXT NULL,
					punchline_image_url TEXT NULL
				);
			`)
			return err
		},
	},
	{
		version: 2,
		name:    "add last_update_ts with backfill, add timestamp indexes",
		apply: func(tx *sql.Tx) error {
			ok, err := columnExists(tx, "joke_interactions", "last_update_ts")
			if err != nil {
				return err
			}
			if !ok {
				if _, err := tx.Exec(`ALTER TABLE joke_interactions ADD COLUMN last_update_ts TEXT NULL;`); err != nil {
					return err
				}
			}

			// Rows written before this column existed get "now"; they were
			// last touched no later than this migration.
			now := time.Now().UTC().Format(time.RFC3339Nano)
			if _, err := tx.Exec(`UPDATE joke_interactions SET last_update_ts = ? WHERE last_update_ts IS NULL;`, now); err != nil {
				return err
			}

			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_joke_interactions_viewed_ts ON joke_interactions(viewed_ts);`,
				`CREATE INDEX IF NOT EXISTS idx_joke_interactions_saved_ts ON joke_interactions(saved_ts);`,
				`CREATE INDEX IF NOT EXISTS idx_joke_interactions_shared_ts ON joke_interactions(shared_ts);`,
				`CREATE INDEX IF NOT EXISTS idx_joke_interactions_last_update_ts ON joke_interactions(last_update_ts);`,
			}
			for _, stmt := range indexes {
				if _, err := tx.Exec(stmt); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		version: 3,
		name:    "create category_interactions",
		apply: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS category_interactions (
					category_id    TEXT PRIMARY KEY,
					viewed_ts      TEXT NULL,
					last_update_ts TEXT NOT NULL
				);
			`); err != nil {
				return err
			}
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_category_interactions_last_update_ts ON category_interactions(last_update_ts);`)
			return err
		},
	},
	{
		version: 4,
		name:    "add feed_index",
		apply: func(tx *sql.Tx) error {
			ok, err := columnExists(tx, "joke_interactions", "feed_index")
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
			_, err = tx.Exec(`ALTER TABLE joke_interactions ADD COLUMN feed_index INTEGER NULL;`)
			return err
		},
	},
}

// Migrate brings the database schema up to SchemaVersion, applying any
// pending steps in order, each in its own transaction.
func Migrate(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("migrate: db is nil")
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`); err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	current, err := CurrentVersion(db)
	if err != nil {
		return err
	}

	if current > SchemaVersion {
		return fmt.Errorf("migrate: stored version %d, supported %d: %w", current, SchemaVersion, ErrSchemaTooNew)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migrate: begin v%d: %w", m.version, err)
		}

		if err := m.apply(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate: apply v%d (%s): %w", m.version, m.name, err)
		}

		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?);`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate: record v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate: commit v%d: %w", m.version, err)
		}
	}

	return nil
}

// CurrentVersion returns the highest applied schema version, 0 for a fresh
// database.
func CurrentVersion(db *sql.DB) (int, error) {
	var current int
	err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current)
	if err != nil {
		return 0, fmt.Errorf("migrate: read current version: %w", err)
	}
	return current, nil
}

func columnExists(tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.Query(fmt.Sprintf(`PRAGMA table_info(%s);`, table))
	if err != nil {
		return false, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
