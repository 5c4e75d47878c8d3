package engine

import (
	"context"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"

	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/similarity"
	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/store"
)

// titleGroups buckets nodes by normalized title in discovery order. Nodes
// without a title are never grouped.
func titleGroups(nodes []*store.Node) *orderedmap.OrderedMap[string, []*store.Node] {
	groups := orderedmap.New[string, []*store.Node]()
	for _, n := range nodes {
		key := similarity.Normalize(n.Title)
		if key == "" {
			continue
		}
		members, _ := groups.Get(key)
		groups.Set(key, append(members, n))
	}
	return groups
}

// fold appends dup's relations, examples and sources onto canonical and
// keeps the higher trust score.
func fold(canonical, dup *store.Node) {
	canonical.Relations = append(canonical.Relations, dup.Relations...)
	canonical.Examples = append(canonical.Examples, dup.Examples...)
	canonical.Sources = append(canonical.Sources, dup.Sources...)
	if dup.TrustScore > canonical.TrustScore {
		canonical.TrustScore = dup.TrustScore
	}
}

// mergeDuplicates folds every duplicate-title group into its lowest id and
// deletes the other records. It returns the ids whose records were removed.
// A failed canonical write leaves the whole group on disk; a failed delete
// is counted and the id stays out of the removed list.
func (e *Engine) mergeDuplicates(ctx context.Context, nodes []*store.Node, r *Report) ([]string, error) {
	removed := []string{}
	groups := titleGroups(nodes)

	for p := groups.Oldest(); p != nil; p = p.Next() {
		members := p.Value
		if len(members) < 2 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
		canonical, dups := members[0], members[1:]
		for _, d := range dups {
			fold(canonical, d)
		}

		if err := e.nodes.Write(canonical); err != nil {
			e.log.Warn("merge: canonical write failed, keeping duplicates",
				zap.String("canonical", canonical.ID),
				zap.Int("duplicates", len(dups)),
				zap.Error(err))
			r.Failures++
			continue
		}

		for _, d := range dups {
			if err := e.nodes.Delete(d); err != nil {
				e.log.Warn("merge: delete failed",
					zap.String("id", d.ID),
					zap.String("canonical", canonical.ID),
					zap.Error(err))
				r.Failures++
				continue
			}
			removed = append(removed, d.ID)
			e.recordMerge(r, d.ID, canonical)
			e.log.Info("merge: folded duplicate",
				zap.String("id", d.ID),
				zap.String("canonical", canonical.ID),
				zap.String("title", canonical.Title))
		}
	}
	return removed, nil
}

func (e *Engine) recordMerge(r *Report, removedID string, canonical *store.Node) {
	if e.ledger == nil || !r.ledgered {
		return
	}
	if err := e.ledger.RecordMerge(r.RunID, removedID, canonical.ID, canonical.Title); err != nil {
		e.log.Warn("ledger: record merge failed", zap.String("run_id", r.RunID), zap.Error(err))
	}
}
