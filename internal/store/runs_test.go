package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunLifecycle(t *testing.T) {
	db := testDB(t)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, db.StartRun("run-1", "optimize", start))

	r, err := db.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, RunRunning, r.Status)
	assert.Nil(t, r.FinishedAt)
	assert.Equal(t, start.UnixMilli(), r.StartedAt)

	require.NoError(t, db.RecordMerge("run-1", "llm-guide-2", "llm-guide", "LLM Guide"))
	require.NoError(t, db.RecordMerge("run-1", "llm-guide-3", "llm-guide", ""))

	err = db.FinishRun(&Run{
		RunID: "run-1", Status: RunOK,
		NodeCount: 5, Removed: 2, Decayed: 1, Failures: 0,
		Checksum: "abc",
	})
	require.NoError(t, err)

	r, err = db.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, RunOK, r.Status)
	require.NotNil(t, r.FinishedAt)
	assert.Equal(t, 5, r.NodeCount)
	assert.Equal(t, 2, r.Removed)
	assert.Equal(t, "abc", r.Checksum)
	assert.Empty(t, r.Error)

	merges, err := db.ListMerges("run-1")
	require.NoError(t, err)
	require.Len(t, merges, 2)
	assert.Equal(t, "llm-guide-2", merges[0].RemovedID)
	assert.Equal(t, "LLM Guide", merges[0].Title)
	assert.Equal(t, "", merges[1].Title)
}

func TestFinishUnknownRun(t *testing.T) {
	db := testDB(t)
	err := db.FinishRun(&Run{RunID: "ghost", Status: RunFailed})
	assert.Error(t, err)
}

func TestGetRunMissing(t *testing.T) {
	db := testDB(t)
	r, err := db.GetRun("ghost")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestListRunsNewestFirst(t *testing.T) {
	db := testDB(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, db.StartRun(id, "build-edges", base.Add(time.Duration(i)*time.Hour)))
	}

	runs, err := db.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)

	all, err := db.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
