package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/config"
)

// NewRootCommand assembles the sekgs command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sekgs",
		Short: "Build and maintain the sekgs knowledge graph",
		Long: `sekgs turns the node records under <data_directory>/nodes into a
deterministic related_to graph at <data_directory>/graph.json, and keeps it
healthy by decaying stale nodes and merging duplicate titles.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (default <data-dir>/"+config.FileName+" if present)")
	pf.String("data-dir", "", "Data directory (overrides config and DATA_DIR)")
	pf.String("log-level", "", "Log level: debug|info|warn|error")
	pf.String("log-format", "", "Log format: console|json")
	pf.Bool("json", false, "Print machine-readable output")
	pf.String("metrics-file", "", "Write run metrics in Prometheus text format to this file")
	pf.Bool("no-ledger", false, "Do not record runs in the SQLite ledger")

	rootCmd.AddCommand(
		newBuildEdgesCmd(),
		newOptimizeCmd(),
		newRunCmd(),
		newVerifyCmd(),
		newRunsCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the context, which
// aborts a run before the graph is written.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}
