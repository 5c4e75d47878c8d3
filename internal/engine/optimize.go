package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/graph"
)

// Optimize decays stale nodes, merges duplicate titles, and drops removed ids
// and their edges from the graph.
func (e *Engine) Optimize(ctx context.Context) (*Report, error) {
	return e.run(ctx, OpOptimize, e.optimize)
}

func (e *Engine) optimize(ctx context.Context, r *Report) error {
	res, err := e.nodes.List()
	if err != nil {
		return err
	}
	r.Nodes = len(res.Nodes)
	r.Skipped = res.Skipped

	now := e.now()
	for _, n := range res.Nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		changed, err := e.decay.Apply(n, now)
		if err != nil {
			e.log.Debug("decay: skipping node", zap.String("id", n.ID), zap.Error(err))
			continue
		}
		if !changed {
			continue
		}
		if err := e.nodes.Write(n); err != nil {
			e.log.Warn("decay: write failed", zap.String("id", n.ID), zap.Error(err))
			r.Failures++
			continue
		}
		r.Decayed++
	}

	removed, err := e.mergeDuplicates(ctx, res.Nodes, r)
	r.Removed = removed
	if err != nil {
		return err
	}

	g := e.graph.Load()
	set := make(map[string]bool, len(removed))
	for _, id := range removed {
		set[id] = true
	}
	r.DroppedEdges = g.RemoveNodes(set)
	fillMeta(&g.Meta)
	g.Meta.OptimizedAt = graph.Timestamp(now)

	if err := e.graph.Save(g); err != nil {
		return err
	}
	r.Edges = len(g.Edges)
	r.Checksum = g.Meta.RelationsChecksum
	return nil
}
