package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Checksum hashes the canonical serialization: sorted node ids, then sorted
// "source|target|type|weight" tuples. Meta is excluded so reruns over the
// same node set hash identically.
func Checksum(g *Graph) string {
	nodes := make([]string, len(g.Nodes))
	copy(nodes, g.Nodes)
	sort.Strings(nodes)

	tuples := make([]string, 0, len(g.Edges))
	for _, e := range g.Edges {
		tuples = append(tuples, edgeTuple(e))
	}
	sort.Strings(tuples)

	h := sha256.New()
	h.Write([]byte("nodes\n"))
	for _, n := range nodes {
		h.Write([]byte(n))
		h.Write([]byte{'\n'})
	}
	h.Write([]byte("edges\n"))
	for _, t := range tuples {
		h.Write([]byte(t))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func edgeTuple(e Edge) string {
	return strings.Join([]string{
		e.Source,
		e.Target,
		e.Type,
		strconv.FormatFloat(e.Weight, 'f', 6, 64),
	}, "|")
}

// Report is the outcome of auditing a persisted graph.
type Report struct {
	StoredChecksum    string   `json:"stored_checksum"`
	ComputedChecksum  string   `json:"computed_checksum"`
	ChecksumMatch     bool     `json:"checksum_match"`
	DanglingEdges     []string `json:"dangling_edges,omitempty"`
	NonCanonicalEdges []string `json:"non_canonical_edges,omitempty"`
	DuplicateEdges    []string `json:"duplicate_edges,omitempty"`
	DuplicateNodes    []string `json:"duplicate_nodes,omitempty"`
	CountMismatch     bool     `json:"count_mismatch"`
}

// OK reports whether the graph passed every check.
func (r Report) OK() bool {
	return r.ChecksumMatch &&
		!r.CountMismatch &&
		len(r.DanglingEdges) == 0 &&
		len(r.NonCanonicalEdges) == 0 &&
		len(r.DuplicateEdges) == 0 &&
		len(r.DuplicateNodes) == 0
}

// Verify recomputes the checksum and checks the structural invariants. It
// is an audit tool; Load never rejects a graph on these grounds.
func Verify(g *Graph) Report {
	r := Report{
		StoredChecksum:   g.Meta.RelationsChecksum,
		ComputedChecksum: Checksum(g),
		CountMismatch:    g.Meta.RelationsCount != len(g.Edges),
	}
	r.ChecksumMatch = r.StoredChecksum == r.ComputedChecksum

	members := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if members[n] {
			r.DuplicateNodes = append(r.DuplicateNodes, n)
		}
		members[n] = true
	}

	seen := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		key := e.Source + "|" + e.Target
		if !members[e.Source] || !members[e.Target] {
			r.DanglingEdges = append(r.DanglingEdges, key)
		}
		if e.Source >= e.Target {
			r.NonCanonicalEdges = append(r.NonCanonicalEdges, key)
		}
		if seen[key] {
			r.DuplicateEdges = append(r.DuplicateEdges, key)
		}
		seen[key] = true
	}
	return r
}
