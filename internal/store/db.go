package store

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// MemoryPath is the Path of a ledger opened with OpenMemory.
const MemoryPath = ":memory:"

// Applied to every pooled connection through the DSN.
var ledgerPragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// DB is the run ledger: one SQLite file next to the graph recording every
// build-edges and optimize invocation and the merges it performed.
type DB struct {
	*sql.DB
	Path string
}

// Open opens the ledger at path, creating its directory and schema as needed.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	return open(path)
}

// OpenMemory opens a private in-memory ledger.
func OpenMemory() (*DB, error) {
	return open(MemoryPath)
}

func open(path string) (*DB, error) {
	q := url.Values{"_pragma": ledgerPragmas}
	sqlDB, err := sql.Open("sqlite", path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	if path == MemoryPath {
		// Every connection to :memory: is a separate empty database.
		sqlDB.SetMaxOpenConns(1)
	}

	db := &DB{DB: sqlDB, Path: path}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate ledger %s: %w", path, err)
	}
	return db, nil
}
