package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "runs: one row per build-edges / optimize invocation",
		SQL: `
CREATE TABLE runs (
    id            INTEGER PRIMARY KEY,
    run_id        TEXT NOT NULL UNIQUE,
    operation     TEXT NOT NULL CHECK (operation IN ('build-edges', 'optimize')),
    status        TEXT NOT NULL DEFAULT 'running' CHECK (status IN ('running', 'ok', 'failed')),
    started_at    INTEGER NOT NULL,
    finished_at   INTEGER,

    node_count    INTEGER NOT NULL DEFAULT 0,
    edge_count    INTEGER NOT NULL DEFAULT 0,
    skipped       INTEGER NOT NULL DEFAULT 0,
    decayed       INTEGER NOT NULL DEFAULT 0,
    removed       INTEGER NOT NULL DEFAULT 0,
    failures      INTEGER NOT NULL DEFAULT 0,

    checksum      TEXT,
    error         TEXT
);

CREATE INDEX idx_runs_started   ON runs(started_at DESC);
CREATE INDEX idx_runs_operation ON runs(operation);
`,
	},
	{
		Version:     2,
		Description: "merges: duplicate nodes folded into a canonical node",
		SQL: `
CREATE TABLE merges (
    id            INTEGER PRIMARY KEY,
    run_id        TEXT NOT NULL,
    removed_id    TEXT NOT NULL,
    canonical_id  TEXT NOT NULL,
    title         TEXT,
    created_at    INTEGER NOT NULL,

    FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX idx_merges_run       ON merges(run_id);
CREATE INDEX idx_merges_canonical ON merges(canonical_id);
`,
	},
}

// migrate applies every migration newer than the recorded schema version, each
// in its own transaction. A ledger written by a newer schema is refused.
func (db *DB) migrate() error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`); err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	current, err := db.SchemaVersion()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if latest := migrations[len(migrations)-1].Version; current > latest {
		return fmt.Errorf("ledger schema version %d is newer than supported %d", current, latest)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := db.apply(m); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) apply(m migration) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(m.SQL); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if _, err = tx.Exec(
		"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
		m.Version, m.Description,
	); err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}
	return nil
}

// SchemaVersion returns the highest applied migration, 0 for a fresh ledger.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
