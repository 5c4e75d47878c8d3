package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemory(t *testing.T) {
	db := testDB(t)
	assert.Equal(t, MemoryPath, db.Path)
}

func TestOpenFileCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sekgs.db")
	db, err := Open(path)
	require.NoError(t, err)

	// Reopening must not re-run migrations.
	db.Close()
	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	v, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

func TestSchemaVersion(t *testing.T) {
	v, err := testDB(t).SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestTablesExist(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"schema_versions", "runs", "merges"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		assert.NoError(t, err, "table %q", table)
	}
}

func TestRunsConstraints(t *testing.T) {
	db := testDB(t)

	_, err := db.Exec(`INSERT INTO runs (run_id, operation, started_at) VALUES ('r1', 'publish', 1)`)
	assert.Error(t, err, "unknown operation must fail the CHECK constraint")

	_, err = db.Exec(`INSERT INTO merges (run_id, removed_id, canonical_id, created_at) VALUES ('nope', 'a', 'b', 1)`)
	assert.Error(t, err, "merge without a run must fail the foreign key")
}

func TestOpenRefusesNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sekgs.db")
	db, err := Open(path)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO schema_versions (version, description) VALUES (99, 'future')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(path)
	assert.ErrorContains(t, err, "newer than supported")
}

func TestFileLedgerEnforcesForeignKeys(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "sekgs.db"))
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(4)

	// Hold one connection so the insert runs on a second pooled one.
	held, err := db.Begin()
	require.NoError(t, err)
	defer held.Rollback()

	_, err = db.Exec(`INSERT INTO merges (run_id, removed_id, canonical_id, created_at) VALUES ('nope', 'a', 'b', 1)`)
	assert.Error(t, err)
}
