package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/graph"
	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/similarity"
)

func defaultBuilder() EdgeBuilder {
	return EdgeBuilder{Metric: similarity.Jaccard{}, TopK: 3, MinSimilarity: 0.05, Workers: 4}
}

func TestBuildTransformerTextsAreRelated(t *testing.T) {
	docs := []Document{
		{ID: "y", Text: "large language model transformer design"},
		{ID: "x", Text: "large language models transformer architecture"},
	}
	edges, err := defaultBuilder().Build(context.Background(), docs)
	require.NoError(t, err)

	want := []graph.Edge{{Source: "x", Target: "y", Type: graph.RelatedTo, Weight: 0.428571}}
	if diff := cmp.Diff(want, edges); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildFewerThanTwoNodes(t *testing.T) {
	for _, docs := range [][]Document{nil, {{ID: "only", Text: "lonely node"}}} {
		edges, err := defaultBuilder().Build(context.Background(), docs)
		require.NoError(t, err)
		assert.NotNil(t, edges)
		assert.Empty(t, edges)
	}
}

func TestBuildTieBreaksOnID(t *testing.T) {
	docs := []Document{
		{ID: "c", Text: "alpha beta"},
		{ID: "a", Text: "alpha beta"},
		{ID: "b", Text: "alpha beta"},
	}
	b := defaultBuilder()
	b.TopK = 1
	edges, err := b.Build(context.Background(), docs)
	require.NoError(t, err)

	// a picks b, b picks a, c picks a.
	assert.Equal(t, []graph.Edge{
		{Source: "a", Target: "b", Type: graph.RelatedTo, Weight: 1},
		{Source: "a", Target: "c", Type: graph.RelatedTo, Weight: 1},
	}, edges)
}

func TestBuildRespectsThreshold(t *testing.T) {
	docs := []Document{
		{ID: "a", Text: "video editing tools"},
		{ID: "b", Text: "sourdough bread recipe"},
		{ID: "c", Text: ""},
	}
	edges, err := defaultBuilder().Build(context.Background(), docs)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestBuildCanonicalAndUnique(t *testing.T) {
	docs := corpus(40)
	edges, err := defaultBuilder().Build(context.Background(), docs)
	require.NoError(t, err)
	require.NotEmpty(t, edges)

	seen := map[[2]string]bool{}
	for i, e := range edges {
		assert.Less(t, e.Source, e.Target)
		assert.GreaterOrEqual(t, e.Weight, 0.05)
		assert.LessOrEqual(t, e.Weight, 1.0)
		key := [2]string{e.Source, e.Target}
		assert.False(t, seen[key], "duplicate edge %v", key)
		seen[key] = true
		if i > 0 {
			prev := edges[i-1]
			assert.True(t, prev.Source < e.Source || (prev.Source == e.Source && prev.Target < e.Target))
		}
	}

	// Each node contributes at most TopK picks.
	assert.LessOrEqual(t, len(edges), len(docs)*3)
}

func TestBuildIndependentOfWorkers(t *testing.T) {
	docs := corpus(60)
	b := defaultBuilder()

	b.Workers = 1
	serial, err := b.Build(context.Background(), docs)
	require.NoError(t, err)

	b.Workers = 16
	parallel, err := b.Build(context.Background(), docs)
	require.NoError(t, err)

	if diff := cmp.Diff(serial, parallel); diff != "" {
		t.Errorf("worker count changed the result:\n%s", diff)
	}
}

func TestBuildKeepsHigherDirectionalScore(t *testing.T) {
	// Overlap is symmetric, so both directions agree; the pair must still
	// be emitted exactly once.
	docs := []Document{
		{ID: "a", Text: "prompt engineering"},
		{ID: "b", Text: "prompt engineering guide for creators"},
	}
	b := defaultBuilder()
	b.Metric = similarity.Overlap{}
	edges, err := b.Build(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, 1.0, edges[0].Weight)
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := defaultBuilder().Build(ctx, corpus(10))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRoundWeight(t *testing.T) {
	assert.Equal(t, 0.428571, roundWeight(3.0/7.0))
	assert.Equal(t, 0.333333, roundWeight(1.0/3.0))
	assert.Equal(t, 1.0, roundWeight(0.9999999))
}

// corpus builds n documents sharing vocabulary in overlapping windows.
func corpus(n int) []Document {
	words := []string{"ai", "video", "editing", "prompt", "workflow", "creator", "tools",
		"script", "thumbnail", "audio", "caption", "model", "agent", "automation"}
	docs := make([]Document, n)
	for i := range docs {
		text := ""
		for k := 0; k < 4; k++ {
			text += words[(i+k*3)%len(words)] + " "
		}
		docs[i] = Document{ID: fmt.Sprintf("node-%03d", i), Text: text}
	}
	return docs
}
