package store

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	RunRunning = "running"
	RunOK      = "ok"
	RunFailed  = "failed"
)

// Run is one ledger row for a build-edges or optimize invocation.
type Run struct {
	ID         int64  `json:"-"`
	RunID      string `json:"run_id"`
	Operation  string `json:"operation"`
	Status     string `json:"status"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt *int64 `json:"finished_at,omitempty"`
	NodeCount  int    `json:"node_count"`
	EdgeCount  int    `json:"edge_count"`
	Skipped    int    `json:"skipped"`
	Decayed    int    `json:"decayed"`
	Removed    int    `json:"removed"`
	Failures   int    `json:"failures"`
	Checksum   string `json:"checksum,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Merge records a duplicate node folded into its canonical node.
type Merge struct {
	RunID       string `json:"run_id"`
	RemovedID   string `json:"removed_id"`
	CanonicalID string `json:"canonical_id"`
	Title       string `json:"title,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// StartRun inserts a running row. A row left in "running" marks an
// invocation that never finished.
func (db *DB) StartRun(runID, operation string, startedAt time.Time) error {
	_, err := db.Exec(`
		INSERT INTO runs (run_id, operation, status, started_at)
		VALUES (?, ?, ?, ?)
	`, runID, operation, RunRunning, startedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters and status of r.
func (db *DB) FinishRun(r *Run) error {
	finished := time.Now().UnixMilli()
	if r.FinishedAt != nil {
		finished = *r.FinishedAt
	}
	res, err := db.Exec(`
		UPDATE runs SET status = ?, finished_at = ?, node_count = ?, edge_count = ?,
			skipped = ?, decayed = ?, removed = ?, failures = ?,
			checksum = NULLIF(?, ''), error = NULLIF(?, '')
		WHERE run_id = ?
	`, r.Status, finished, r.NodeCount, r.EdgeCount,
		r.Skipped, r.Decayed, r.Removed, r.Failures,
		r.Checksum, r.Error, r.RunID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("finish run: no run %s", r.RunID)
	}
	r.FinishedAt = &finished
	return nil
}

// RecordMerge appends a merge row for runID.
func (db *DB) RecordMerge(runID, removedID, canonicalID, title string) error {
	_, err := db.Exec(`
		INSERT INTO merges (run_id, removed_id, canonical_id, title, created_at)
		VALUES (?, ?, ?, NULLIF(?, ''), ?)
	`, runID, removedID, canonicalID, title, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("record merge: %w", err)
	}
	return nil
}

// GetRun returns a run by id, or nil if not found.
func (db *DB) GetRun(runID string) (*Run, error) {
	rows, err := db.Query(runSelect+` WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// ListRuns returns the most recent runs first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(runSelect+` ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// ListMerges returns the merges recorded by runID in insertion order.
func (db *DB) ListMerges(runID string) ([]Merge, error) {
	rows, err := db.Query(`
		SELECT run_id, removed_id, canonical_id, title, created_at
		FROM merges WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list merges: %w", err)
	}
	defer rows.Close()

	var merges []Merge
	for rows.Next() {
		var m Merge
		var title sql.NullString
		if err := rows.Scan(&m.RunID, &m.RemovedID, &m.CanonicalID, &title, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan merge: %w", err)
		}
		m.Title = title.String
		merges = append(merges, m)
	}
	return merges, rows.Err()
}

const runSelect = `
	SELECT id, run_id, operation, status, started_at, finished_at,
		node_count, edge_count, skipped, decayed, removed, failures, checksum, error
	FROM runs`

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullInt64
		var checksum, errText sql.NullString
		if err := rows.Scan(&r.ID, &r.RunID, &r.Operation, &r.Status, &r.StartedAt, &finished,
			&r.NodeCount, &r.EdgeCount, &r.Skipped, &r.Decayed, &r.Removed, &r.Failures,
			&checksum, &errText); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if finished.Valid {
			r.FinishedAt = &finished.Int64
		}
		r.Checksum = checksum.String
		r.Error = errText.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
