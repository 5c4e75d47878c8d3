package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/engine"
	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/graph"
	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/store"
)

// errVerifyFailed makes verify exit non-zero after printing its report.
var errVerifyFailed = errors.New("graph failed verification")

func addRelationFlags(cmd *cobra.Command) {
	cmd.Flags().Int("top-k", 0, "Neighbours kept per node (default from config, 3)")
	cmd.Flags().Float64("min-similarity", 0, "Minimum similarity for an edge (default from config, 0.05)")
	cmd.Flags().String("metric", "", "Similarity metric: jaccard|overlap|bigram")
	cmd.Flags().Int("workers", 0, "Parallel similarity workers (default GOMAXPROCS)")
}

func addDecayFlags(cmd *cobra.Command) {
	cmd.Flags().Int("stale-days", 0, "Age in days at which nodes decay (default from config, 180)")
	cmd.Flags().Float64("decay-percent", 0, "Relevance lost per run by stale nodes (default from config, 20)")
}

func newBuildEdgesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build-edges",
		Short: "Recompute related_to edges over all nodes and write graph.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, func(e *engine.Engine, cmd *cobra.Command) ([]*engine.Report, error) {
				r, err := e.BuildEdges(cmd.Context())
				return []*engine.Report{r}, err
			})
		},
	}
	addRelationFlags(cmd)
	return cmd
}

func newOptimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Decay stale nodes, merge duplicate titles and prune the graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, func(e *engine.Engine, cmd *cobra.Command) ([]*engine.Report, error) {
				r, err := e.Optimize(cmd.Context())
				return []*engine.Report{r}, err
			})
		},
	}
	addDecayFlags(cmd)
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Optimize, then rebuild edges over the merged node set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, func(e *engine.Engine, cmd *cobra.Command) ([]*engine.Report, error) {
				return e.Pipeline(cmd.Context())
			})
		},
	}
	addRelationFlags(cmd)
	addDecayFlags(cmd)
	return cmd
}

func runOperation(cmd *cobra.Command, op func(*engine.Engine, *cobra.Command) ([]*engine.Report, error)) error {
	a, err := setupApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	eng, err := a.newEngine()
	if err != nil {
		return err
	}

	reports, runErr := op(eng, cmd)
	a.finish(cmd)

	if a.jsonOut {
		if len(reports) == 1 {
			if err := a.printJSON(reports[0]); err != nil {
				return err
			}
		} else if err := a.printJSON(reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			a.printReport(r)
		}
	}
	return runErr
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Recompute the graph checksum and check its structure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setupApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			g := a.graph.Load()
			report := graph.Verify(g)

			if a.jsonOut {
				if err := a.printJSON(map[string]any{"ok": report.OK(), "report": report}); err != nil {
					return err
				}
			} else {
				printVerify(a, g, report)
			}
			if !report.OK() {
				return errVerifyFailed
			}
			return nil
		},
	}
}

func printVerify(a *app, g *graph.Graph, r graph.Report) {
	fmt.Fprintf(a.out, "graph: %s\n", a.graph.Path())
	fmt.Fprintf(a.out, "  nodes: %d  edges: %d  relations_count: %d\n", len(g.Nodes), len(g.Edges), g.Meta.RelationsCount)
	fmt.Fprintf(a.out, "  stored checksum:   %s\n", r.StoredChecksum)
	fmt.Fprintf(a.out, "  computed checksum: %s\n", r.ComputedChecksum)
	problems := []struct {
		label string
		items []string
	}{
		{"dangling edges", r.DanglingEdges},
		{"non-canonical edges", r.NonCanonicalEdges},
		{"duplicate edges", r.DuplicateEdges},
		{"duplicate nodes", r.DuplicateNodes},
	}
	for _, p := range problems {
		if len(p.items) > 0 {
			fmt.Fprintf(a.out, "  %s: %v\n", p.label, p.items)
		}
	}
	if r.CountMismatch {
		fmt.Fprintln(a.out, "  relations_count does not match the edge list")
	}
	if r.OK() {
		fmt.Fprintln(a.out, "ok")
	} else {
		fmt.Fprintln(a.out, "DRIFT")
	}
}

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setupApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if a.ledger == nil {
				return errors.New("run ledger is disabled or unavailable")
			}

			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := a.ledger.ListRuns(limit)
			if err != nil {
				return err
			}
			if a.jsonOut {
				if runs == nil {
					runs = []store.Run{}
				}
				return a.printJSON(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.out, "No runs recorded.")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(a.out, "%s  %-11s %-7s nodes=%d edges=%d removed=%d failures=%d\n",
					r.RunID, r.Operation, r.Status, r.NodeCount, r.EdgeCount, r.Removed, r.Failures)
				if r.Error != "" {
					fmt.Fprintf(a.out, "    error: %s\n", r.Error)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to list")
	return cmd
}
