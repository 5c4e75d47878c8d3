package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeRecord(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func testNodeStore(t *testing.T) (*NodeStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "nodes")
	return NewNodeStore(dir, zaptest.NewLogger(t)), dir
}

func TestListMissingDirIsEmpty(t *testing.T) {
	s, _ := testNodeStore(t)
	res, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, res.Nodes)
	assert.Zero(t, res.Skipped)
}

func TestListSortedAndSkipsBadRecords(t *testing.T) {
	s, dir := testNodeStore(t)
	writeRecord(t, dir, "b.json", `{"id":"b","title":"B","text":"bee"}`)
	writeRecord(t, dir, "a.json", `{"id":"a","title":"A","text":"ay"}`)
	writeRecord(t, dir, "broken.json", `{"id":`)
	writeRecord(t, dir, "wrongtype.json", `{"id":"w","trust_score":"high"}`)
	writeRecord(t, dir, "badid.json", `{"id":"has space"}`)
	writeRecord(t, dir, "notes.txt", `ignored`)
	writeRecord(t, dir, ".a.json.123.tmp", `ignored`)

	res, err := s.List()
	require.NoError(t, err)
	require.Len(t, res.Nodes, 2)
	assert.Equal(t, "a", res.Nodes[0].ID)
	assert.Equal(t, "b", res.Nodes[1].ID)
	assert.Equal(t, 3, res.Skipped)
}

func TestListDuplicateIDKeepsFirstFile(t *testing.T) {
	s, dir := testNodeStore(t)
	writeRecord(t, dir, "a.json", `{"id":"same","title":"first"}`)
	writeRecord(t, dir, "b.json", `{"id":"same","title":"second"}`)

	res, err := s.List()
	require.NoError(t, err)
	require.Len(t, res.Nodes, 1)
	assert.Equal(t, "first", res.Nodes[0].Title)
	assert.Equal(t, 1, res.Skipped)
}

func TestListDefaultsIDFromFileName(t *testing.T) {
	s, dir := testNodeStore(t)
	writeRecord(t, dir, "prompt-tools.json", `{"title":"Prompt tools"}`)

	res, err := s.List()
	require.NoError(t, err)
	require.Len(t, res.Nodes, 1)
	assert.Equal(t, "prompt-tools", res.Nodes[0].ID)
}

func TestNodeDefaultsAtBoundary(t *testing.T) {
	var n Node
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","trust_score":140}`), &n))
	assert.Equal(t, DefaultRelevance, n.RelevanceScore)
	assert.Equal(t, 100.0, n.TrustScore)
	assert.NotNil(t, n.Keywords)
	assert.NotNil(t, n.Relations)
	assert.NotNil(t, n.Examples)
	assert.NotNil(t, n.Sources)

	var z Node
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","relevance_score":0}`), &z))
	assert.Equal(t, 0.0, z.RelevanceScore, "explicit zero is kept")
}

func TestWritePreservesUnknownFields(t *testing.T) {
	s, dir := testNodeStore(t)
	writeRecord(t, dir, "tool.json", `{
		"id": "tool",
		"title": "Tool",
		"domain": "ai-tools-creator-workflows",
		"metadata": {"lang": "en", "created_by": "crawler"},
		"popularity_score": 5.0,
		"relations": ["other", {"id": "x"}],
		"sources": [{"title": "T", "url": "https://e.com/?a=1&b=2", "date": "2025-01-01"}],
		"relevance_score": 10
	}`)

	res, err := s.List()
	require.NoError(t, err)
	node := res.Nodes[0]
	node.RelevanceScore = 8
	require.NoError(t, s.Write(node))

	data, err := os.ReadFile(filepath.Join(dir, "tool.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://e.com/?a=1&b=2")

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "ai-tools-creator-workflows", raw["domain"])
	assert.Equal(t, map[string]any{"lang": "en", "created_by": "crawler"}, raw["metadata"])
	assert.Equal(t, 5.0, raw["popularity_score"])
	assert.Equal(t, 8.0, raw["relevance_score"])
	assert.Len(t, raw["relations"], 2)

	dom, ok := node.Extra("domain")
	require.True(t, ok)
	assert.JSONEq(t, `"ai-tools-creator-workflows"`, string(dom))
}

func TestWriteIsByteStable(t *testing.T) {
	s, dir := testNodeStore(t)
	n := &Node{ID: "stable", Title: "Stable", Text: "some text", RelevanceScore: 10}
	require.NoError(t, s.Write(n))
	first, err := os.ReadFile(filepath.Join(dir, "stable.json"))
	require.NoError(t, err)

	loaded, err := s.Get("stable")
	require.NoError(t, err)
	require.NoError(t, s.Write(loaded))
	second, err := os.ReadFile(filepath.Join(dir, "stable.json"))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestWriteRejectsInvalidID(t *testing.T) {
	s, _ := testNodeStore(t)
	assert.Error(t, s.Write(&Node{ID: "../escape"}))
	assert.Error(t, s.Write(&Node{ID: ".."}))
	assert.Error(t, s.Write(&Node{}))
}

func TestGet(t *testing.T) {
	s, dir := testNodeStore(t)
	writeRecord(t, dir, "a.json", `{"id":"a","title":"A"}`)

	n, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "A", n.Title)
	assert.Equal(t, filepath.Join(dir, "a.json"), n.Path())

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	_, err = s.Get("../a")
	assert.Error(t, err)
}

func TestGetUsesRecordID(t *testing.T) {
	s, dir := testNodeStore(t)
	writeRecord(t, dir, "file-a.json", `{"id":"node-b","title":"B"}`)
	writeRecord(t, dir, "m.json", `{"id":"dup","title":"first"}`)
	writeRecord(t, dir, "z.json", `{"id":"dup","title":"second"}`)
	writeRecord(t, dir, "dup.json", `{"id":"other"}`)

	n, err := s.Get("node-b")
	require.NoError(t, err)
	assert.Equal(t, "B", n.Title)
	assert.Equal(t, filepath.Join(dir, "file-a.json"), n.Path())

	_, err = s.Get("file-a")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	n, err = s.Get("dup")
	require.NoError(t, err)
	assert.Equal(t, "first", n.Title, "same record List keeps")
}

func TestDelete(t *testing.T) {
	s, dir := testNodeStore(t)
	writeRecord(t, dir, "a.json", `{"id":"a"}`)
	n, err := s.Get("a")
	require.NoError(t, err)

	require.NoError(t, s.Delete(n))
	_, err = os.Stat(filepath.Join(dir, "a.json"))
	assert.True(t, os.IsNotExist(err))

	s.remove = func(string) error { return errors.New("read-only fs") }
	assert.ErrorContains(t, s.Delete(n), "read-only fs")
}

func TestContentFallback(t *testing.T) {
	assert.Equal(t, "t", (&Node{Text: "t", Summary: "s"}).Content())
	assert.Equal(t, "f", (&Node{Text: "  ", FullText: "f", Summary: "s"}).Content())
	assert.Equal(t, "s", (&Node{Summary: "s"}).Content())
	assert.Equal(t, "", (&Node{Title: "only a title"}).Content())
}

func TestLastUpdatedTime(t *testing.T) {
	want := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	for _, s := range []string{
		"2025-03-04T05:06:07Z",
		"2025-03-04T05:06:07",
		"2025-03-04T05:06:07.000000Z",
		"2025-03-04 05:06:07",
	} {
		got, err := (&Node{LastUpdated: s}).LastUpdatedTime()
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), "%s parsed as %s", s, got)
	}

	day, err := (&Node{LastUpdated: "2025-03-04"}).LastUpdatedTime()
	require.NoError(t, err)
	assert.Equal(t, 4, day.Day())

	for _, s := range []string{"", "yesterday", "04/03/2025"} {
		_, err := (&Node{LastUpdated: s}).LastUpdatedTime()
		assert.Error(t, err, s)
	}
}
