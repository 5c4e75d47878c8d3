package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the graph, nodes and run ledger over a read-only HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("bind", "", "Bind address (default from config, 127.0.0.1)")
	cmd.Flags().Int("port", 0, "Port (default from config, 37778)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setupApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	srv := server.New(server.Deps{
		Nodes:   a.nodes,
		Graph:   a.graph,
		Ledger:  a.ledger,
		Metrics: a.metrics,
		Logger:  a.log,
	}, VersionString())
	addr := a.cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "sekgs serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  data: %s\n", a.cfg.DataDir)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown on SIGINT/SIGTERM, which cancel the command context.
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-cmd.Context().Done():
	}
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		a.log.Warn("server: shutdown", zap.Error(err))
		return err
	}
	return nil
}
