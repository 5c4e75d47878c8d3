package graph

import (
	"sort"
	"time"
)

// RelatedTo is the only edge classification produced by the relation builder.
const RelatedTo = "related_to"

// Edge is an undirected similarity relation stored with Source < Target.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
}

// Meta describes the run that last wrote the graph.
type Meta struct {
	Domain                 string  `json:"domain,omitempty"`
	Version                string  `json:"version,omitempty"`
	GeneratedAt            string  `json:"generated_at,omitempty"`
	RelationsGeneratedAt   string  `json:"relations_generated_at,omitempty"`
	RelationsCount         int     `json:"relations_count"`
	RelationsTopK          int     `json:"relations_top_k"`
	RelationsMinSimilarity float64 `json:"relations_min_similarity"`
	RelationsChecksum      string  `json:"relations_checksum"`
	OptimizedAt            string  `json:"optimized_at,omitempty"`
}

// Graph is the persisted aggregate read by the publisher.
type Graph struct {
	Meta  Meta     `json:"meta"`
	Nodes []string `json:"nodes"`
	Edges []Edge   `json:"edges"`
}

// Empty returns a well-formed graph with no nodes or edges.
func Empty() *Graph {
	return &Graph{Nodes: []string{}, Edges: []Edge{}}
}

// Timestamp formats t the way every meta timestamp is written.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// normalize guarantees non-nil slices so they encode as [] and never null.
func (g *Graph) normalize() {
	if g.Nodes == nil {
		g.Nodes = []string{}
	}
	if g.Edges == nil {
		g.Edges = []Edge{}
	}
}

// SetEdges replaces the edge set, sorted by (source, target), and keeps
// relations_count in step with it.
func (g *Graph) SetEdges(edges []Edge) {
	sorted := make([]Edge, len(edges))
	copy(sorted, edges)
	SortEdges(sorted)
	g.Edges = sorted
	g.Meta.RelationsCount = len(sorted)
}

// RemoveNodes drops the given ids from the node list along with every edge
// touching them. It returns the number of edges dropped.
func (g *Graph) RemoveNodes(removed map[string]bool) int {
	if len(removed) == 0 {
		return 0
	}
	nodes := make([]string, 0, len(g.Nodes))
	for _, id := range g.Nodes {
		if !removed[id] {
			nodes = append(nodes, id)
		}
	}
	g.Nodes = nodes

	edges := make([]Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if removed[e.Source] || removed[e.Target] {
			continue
		}
		edges = append(edges, e)
	}
	dropped := len(g.Edges) - len(edges)
	g.Edges = edges
	g.Meta.RelationsCount = len(edges)
	return dropped
}

// Neighbors returns the edges touching id, strongest first.
func (g *Graph) Neighbors(id string) []Edge {
	out := make([]Edge, 0)
	for _, e := range g.Edges {
		if e.Source == id || e.Target == id {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight > out[j].Weight
	})
	return out
}

// HasNode reports whether id is in the node list.
func (g *Graph) HasNode(id string) bool {
	for _, n := range g.Nodes {
		if n == id {
			return true
		}
	}
	return false
}

// SortEdges orders edges by (source, target).
func SortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source == edges[j].Source {
			return edges[i].Target < edges[j].Target
		}
		return edges[i].Source < edges[j].Source
	})
}
