package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/config"
	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/engine"
	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/graph"
	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/logging"
	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/metrics"
	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/store"
)

// app is everything a command needs, built from flags and config.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	nodes   *store.NodeStore
	graph   *graph.Persister
	ledger  *store.DB
	metrics *metrics.Collector
	out     io.Writer
	jsonOut bool
}

// setupApp loads configuration, applies flag overrides and opens the stores.
// The ledger is optional: a failure to open it is logged and the command
// continues without it.
func setupApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		nodes:   store.NewNodeStore(cfg.NodesDir(), log),
		graph:   graph.NewPersister(cfg.GraphPath(), log),
		metrics: metrics.NewCollector(),
		out:     cmd.OutOrStdout(),
	}
	a.jsonOut, _ = cmd.Flags().GetBool("json")

	if cfg.Ledger.Enabled {
		db, err := store.Open(cfg.LedgerPath())
		if err != nil {
			log.Warn("ledger: unavailable, continuing without it",
				zap.String("path", cfg.LedgerPath()), zap.Error(err))
		} else {
			a.ledger = db
		}
	}
	return a, nil
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	dataDir, _ := flags.GetString("data-dir")

	cfg, err := config.Load(path, dataDir)
	if err != nil {
		return cfg, err
	}

	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := flags.GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if v, _ := flags.GetBool("no-ledger"); v {
		cfg.Ledger.Enabled = false
	}

	// Command-specific overrides, registered only on the commands that take them.
	if flags.Changed("top-k") {
		cfg.Relations.TopK, _ = flags.GetInt("top-k")
	}
	if flags.Changed("min-similarity") {
		cfg.Relations.MinSimilarity, _ = flags.GetFloat64("min-similarity")
	}
	if flags.Changed("metric") {
		cfg.Relations.Metric, _ = flags.GetString("metric")
	}
	if flags.Changed("workers") {
		cfg.Relations.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("stale-days") {
		cfg.Decay.StaleDays, _ = flags.GetInt("stale-days")
	}
	if flags.Changed("decay-percent") {
		cfg.Decay.DecayPercent, _ = flags.GetFloat64("decay-percent")
	}
	if flags.Changed("bind") {
		cfg.Server.Bind, _ = flags.GetString("bind")
	}
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}

	return cfg, cfg.Validate()
}

func (a *app) newEngine() (*engine.Engine, error) {
	return engine.New(a.cfg, a.nodes, a.graph, engine.Options{
		Ledger:  a.ledger,
		Metrics: a.metrics,
		Logger:  a.log,
	})
}

func (a *app) close() {
	if a.ledger != nil {
		a.ledger.Close()
	}
	a.log.Sync()
}

// finish writes the metrics textfile when requested. A textfile failure is
// reported but does not fail a run whose graph was written.
func (a *app) finish(cmd *cobra.Command) {
	path, _ := cmd.Flags().GetString("metrics-file")
	if path == "" {
		return
	}
	if err := a.metrics.WriteTextfile(path); err != nil {
		a.log.Warn("metrics: write textfile failed", zap.String("path", path), zap.Error(err))
	}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printReport(r *engine.Report) {
	if r == nil {
		return
	}
	switch r.Operation {
	case engine.OpBuildEdges:
		fmt.Fprintf(a.out, "build-edges: %d nodes (%d skipped), %d edges\n", r.Nodes, r.Skipped, r.Edges)
	case engine.OpOptimize:
		fmt.Fprintf(a.out, "optimize: %d nodes (%d skipped), %d decayed, %d removed, %d edges dropped\n",
			r.Nodes, r.Skipped, r.Decayed, len(r.Removed), r.DroppedEdges)
	}
	if r.Failures > 0 {
		fmt.Fprintf(a.out, "  failures: %d (see log)\n", r.Failures)
	}
	if r.Checksum != "" {
		fmt.Fprintf(a.out, "  checksum: %s\n", r.Checksum)
	}
	fmt.Fprintf(a.out, "  run: %s\n", r.RunID)
}
