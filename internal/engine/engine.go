// Package engine runs the two batch operations over a data directory:
// build-edges recomputes the similarity graph, optimize decays stale nodes
// and merges duplicate titles.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/config"
	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/graph"
	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/metrics"
	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/similarity"
	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/store"
)

const (
	OpBuildEdges = "build-edges"
	OpOptimize   = "optimize"
)

// Defaults written into meta when the graph carries none.
const (
	DefaultDomain  = "ai-tools-creator-workflows"
	DefaultVersion = "0.1"
)

// Report summarizes one run.
type Report struct {
	RunID        string    `json:"run_id"`
	Operation    string    `json:"operation"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Nodes        int       `json:"nodes"`
	Skipped      int       `json:"skipped"`
	Edges        int       `json:"edges"`
	Decayed      int       `json:"decayed"`
	Removed      []string  `json:"removed"`
	DroppedEdges int       `json:"dropped_edges"`
	Failures     int       `json:"failures"`
	Checksum     string    `json:"checksum,omitempty"`

	ledgered bool
}

// NodeStore is the node record storage the engine reads and rewrites.
type NodeStore interface {
	List() (store.ListResult, error)
	Write(node *store.Node) error
	Delete(node *store.Node) error
}

// Options carries the optional collaborators of an Engine.
type Options struct {
	Ledger  *store.DB          // nil disables the run ledger
	Metrics *metrics.Collector // nil disables metrics
	Logger  *zap.Logger
}

// Engine orchestrates edge building, decay and merge over one data directory.
type Engine struct {
	nodes   NodeStore
	graph   *graph.Persister
	builder EdgeBuilder
	decay   Decay
	ledger  *store.DB
	metrics *metrics.Collector
	log     *zap.Logger

	now   func() time.Time
	newID func() string
}

// New creates an Engine. The metric named in cfg must exist.
func New(cfg config.Config, nodes NodeStore, g *graph.Persister, opts Options) (*Engine, error) {
	metric, err := similarity.ByName(cfg.Relations.Metric)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		nodes: nodes,
		graph: g,
		builder: EdgeBuilder{
			Metric:        metric,
			TopK:          cfg.Relations.TopK,
			MinSimilarity: cfg.Relations.MinSimilarity,
			Workers:       cfg.Workers(),
		},
		decay: Decay{
			StaleDays: cfg.Decay.StaleDays,
			Percent:   cfg.Decay.DecayPercent,
		},
		ledger:  opts.Ledger,
		metrics: opts.Metrics,
		log:     log,
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

// BuildEdges recomputes the edge set over every loadable node and writes the
// graph. Only a failure to list the node directory or to write the graph is
// returned as an error.
func (e *Engine) BuildEdges(ctx context.Context) (*Report, error) {
	return e.run(ctx, OpBuildEdges, e.buildEdges)
}

func (e *Engine) buildEdges(ctx context.Context, r *Report) error {
	res, err := e.nodes.List()
	if err != nil {
		return err
	}
	r.Nodes = len(res.Nodes)
	r.Skipped = res.Skipped

	docs := make([]Document, 0, len(res.Nodes))
	ids := make([]string, 0, len(res.Nodes))
	for _, n := range res.Nodes {
		text := n.Content()
		if text == "" {
			e.log.Warn("relations: node has no text", zap.String("id", n.ID))
		}
		docs = append(docs, Document{ID: n.ID, Text: text})
		ids = append(ids, n.ID)
	}
	if len(docs) < 2 {
		e.log.Info("relations: fewer than two nodes, writing empty edge set", zap.Int("nodes", len(docs)))
	}

	edges, err := e.builder.Build(ctx, docs)
	if err != nil {
		return fmt.Errorf("build edges: %w", err)
	}

	g := e.graph.Load()
	stamp := graph.Timestamp(e.now())
	fillMeta(&g.Meta)
	g.Meta.GeneratedAt = stamp
	g.Meta.RelationsGeneratedAt = stamp
	g.Meta.RelationsTopK = e.builder.TopK
	g.Meta.RelationsMinSimilarity = e.builder.MinSimilarity
	g.Nodes = ids
	g.SetEdges(edges)

	if err := e.graph.Save(g); err != nil {
		return err
	}
	r.Edges = len(g.Edges)
	r.Checksum = g.Meta.RelationsChecksum
	return nil
}

// Pipeline runs optimize and then build-edges, so edges are recomputed over
// the merged node set. It stops at the first failed step.
func (e *Engine) Pipeline(ctx context.Context) ([]*Report, error) {
	var reports []*Report
	for _, step := range []func(context.Context) (*Report, error){e.Optimize, e.BuildEdges} {
		r, err := step(ctx)
		reports = append(reports, r)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func fillMeta(m *graph.Meta) {
	if m.Domain == "" {
		m.Domain = DefaultDomain
	}
	if m.Version == "" {
		m.Version = DefaultVersion
	}
}

// run wraps an operation with the ledger row, metrics and the summary log line.
func (e *Engine) run(ctx context.Context, op string, fn func(context.Context, *Report) error) (*Report, error) {
	r := &Report{
		RunID:     e.newID(),
		Operation: op,
		StartedAt: e.now(),
		Removed:   []string{},
	}
	e.startLedger(r)

	err := fn(ctx, r)
	r.FinishedAt = e.now()

	e.finishLedger(r, err)
	e.observe(r, err)

	if err != nil {
		e.log.Error(op+": failed", zap.String("run_id", r.RunID), zap.Error(err))
		return r, err
	}
	e.log.Info(op+": done",
		zap.String("run_id", r.RunID),
		zap.Int("nodes", r.Nodes),
		zap.Int("skipped", r.Skipped),
		zap.Int("edges", r.Edges),
		zap.Int("decayed", r.Decayed),
		zap.Int("removed", len(r.Removed)),
		zap.Int("failures", r.Failures),
		zap.Duration("took", r.FinishedAt.Sub(r.StartedAt)))
	return r, nil
}

func (e *Engine) startLedger(r *Report) {
	if e.ledger == nil {
		return
	}
	if err := e.ledger.StartRun(r.RunID, r.Operation, r.StartedAt); err != nil {
		e.log.Warn("ledger: start run failed", zap.String("run_id", r.RunID), zap.Error(err))
		return
	}
	r.ledgered = true
}

func (e *Engine) finishLedger(r *Report, runErr error) {
	if e.ledger == nil || !r.ledgered {
		return
	}
	finished := r.FinishedAt.UnixMilli()
	row := &store.Run{
		RunID:      r.RunID,
		Status:     store.RunOK,
		FinishedAt: &finished,
		NodeCount:  r.Nodes,
		EdgeCount:  r.Edges,
		Skipped:    r.Skipped,
		Decayed:    r.Decayed,
		Removed:    len(r.Removed),
		Failures:   r.Failures,
		Checksum:   r.Checksum,
	}
	if runErr != nil {
		row.Status = store.RunFailed
		row.Error = runErr.Error()
	}
	if err := e.ledger.FinishRun(row); err != nil {
		e.log.Warn("ledger: finish run failed", zap.String("run_id", r.RunID), zap.Error(err))
	}
}

func (e *Engine) observe(r *Report, runErr error) {
	if e.metrics == nil {
		return
	}
	m := e.metrics
	m.ObserveRun(r.Operation, runErr == nil, r.StartedAt, r.FinishedAt)
	m.NodesLoaded.Set(float64(r.Nodes))
	m.NodesSkipped.Add(float64(r.Skipped))
	m.Decayed.Add(float64(r.Decayed))
	m.Merged.Add(float64(len(r.Removed)))
	m.Failures.Add(float64(r.Failures))
	if runErr == nil {
		m.Edges.Set(float64(r.Edges))
	}
}
