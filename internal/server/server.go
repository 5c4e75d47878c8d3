// Package server exposes the graph, node records and run ledger over a
// read-only HTTP API.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/graph"
	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/metrics"
	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/store"
)

// Deps are the read sides the server serves from. Ledger and Metrics may be nil.
type Deps struct {
	Nodes   *store.NodeStore
	Graph   *graph.Persister
	Ledger  *store.DB
	Metrics *metrics.Collector
	Logger  *zap.Logger
}

// Server is the sekgs HTTP API server.
type Server struct {
	nodes   *store.NodeStore
	graph   *graph.Persister
	db      *store.DB
	metrics *metrics.Collector
	log     *zap.Logger
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server over deps.
func New(deps Deps, version string) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		nodes:   deps.Nodes,
		graph:   deps.Graph,
		db:      deps.Ledger,
		metrics: deps.Metrics,
		log:     log,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/graph", s.handleGraph)
		r.Get("/graph/verify", s.handleVerify)
		r.Get("/nodes", s.handleNodes)
		r.Get("/nodes/{id}", s.handleNode)
		r.Get("/nodes/{id}/neighbors", s.handleNeighbors)
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{runID}", s.handleRun)
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ledgerOK := false
	ledgerPath := ""
	if s.db != nil {
		ledgerOK = s.db.Ping() == nil
		ledgerPath = s.db.Path
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     s.version,
		"uptime":      time.Since(s.started).Seconds(),
		"graph_path":  s.graph.Path(),
		"nodes_dir":   s.nodes.Dir(),
		"ledger":      ledgerOK,
		"ledger_path": ledgerPath,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
