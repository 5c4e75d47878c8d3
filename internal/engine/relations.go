package engine

import (
	"context"
	"math"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/graph"
	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/similarity"
)

// Document is the input to the edge builder: a node id and its content.
type Document struct {
	ID   string
	Text string
}

// EdgeBuilder computes the related_to edge set over a corpus. Every node keeps
// its TopK most similar neighbours scoring at least MinSimilarity; pairs are
// stored once as (min, max) with the higher of the two directional scores.
type EdgeBuilder struct {
	Metric        similarity.Metric
	TopK          int
	MinSimilarity float64
	Workers       int // 0 means unbounded
}

type candidate struct {
	id    string
	score float64
}

// Build scores every ordered pair and returns edges sorted by (source, target).
// The result depends only on the documents, not on Workers or scheduling.
func (b EdgeBuilder) Build(ctx context.Context, docs []Document) ([]graph.Edge, error) {
	if len(docs) < 2 {
		return []graph.Edge{}, nil
	}
	metric := b.Metric
	if metric == nil {
		metric = similarity.Jaccard{}
	}

	sets := make([]similarity.Set, len(docs))
	for i, d := range docs {
		sets[i] = metric.Prepare(d.Text)
	}

	picks := make([][]candidate, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	if b.Workers > 0 {
		g.SetLimit(b.Workers)
	}
	for i := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			picks[i] = b.neighbours(metric, i, docs, sets)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pairs := orderedmap.New[[2]string, float64]()
	for i, cands := range picks {
		for _, c := range cands {
			key := canonicalPair(docs[i].ID, c.id)
			if prev, ok := pairs.Get(key); !ok || c.score > prev {
				pairs.Set(key, c.score)
			}
		}
	}

	edges := make([]graph.Edge, 0, pairs.Len())
	for p := pairs.Oldest(); p != nil; p = p.Next() {
		edges = append(edges, graph.Edge{
			Source: p.Key[0],
			Target: p.Key[1],
			Type:   graph.RelatedTo,
			Weight: roundWeight(p.Value),
		})
	}
	graph.SortEdges(edges)
	return edges, nil
}

// neighbours returns node i's top-k candidates ordered by (-score, id).
func (b EdgeBuilder) neighbours(metric similarity.Metric, i int, docs []Document, sets []similarity.Set) []candidate {
	var out []candidate
	for j := range docs {
		if j == i || docs[j].ID == docs[i].ID {
			continue
		}
		score := metric.Score(sets[i], sets[j])
		if score < b.MinSimilarity {
			continue
		}
		out = append(out, candidate{id: docs[j].ID, score: score})
	}
	sort.Slice(out, func(a, c int) bool {
		if out[a].score != out[c].score {
			return out[a].score > out[c].score
		}
		return out[a].id < out[c].id
	})
	if len(out) > b.TopK {
		out = out[:b.TopK]
	}
	return out
}

func canonicalPair(a, b string) [2]string {
	if b < a {
		return [2]string{b, a}
	}
	return [2]string{a, b}
}

func roundWeight(w float64) float64 {
	return math.Round(w*1e6) / 1e6
}
