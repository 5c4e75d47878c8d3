package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/graph"
	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/store"
)

type nodeSummary struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	TrustScore     float64 `json:"trust_score"`
	RelevanceScore float64 `json:"relevance_score"`
	LastUpdated    string  `json:"last_updated,omitempty"`
	Degree         int     `json:"degree"`
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.graph.Load())
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	g := s.graph.Load()
	report := graph.Verify(g)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     report.OK(),
		"report": report,
	})
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	res, err := s.nodes.List()
	if err != nil {
		s.log.Error("api: list nodes", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	degree := make(map[string]int)
	for _, e := range s.graph.Load().Edges {
		degree[e.Source]++
		degree[e.Target]++
	}

	nodes := res.Nodes
	if limit > 0 && len(nodes) > limit {
		nodes = nodes[:limit]
	}
	out := make([]nodeSummary, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeSummary{
			ID:             n.ID,
			Title:          n.Title,
			TrustScore:     n.TrustScore,
			RelevanceScore: n.RelevanceScore,
			LastUpdated:    n.LastUpdated,
			Degree:         degree[n.ID],
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"nodes":   out,
		"total":   len(res.Nodes),
		"skipped": res.Skipped,
	})
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	node, ok := s.loadNode(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	g := s.graph.Load()
	if !g.HasNode(id) {
		writeError(w, http.StatusNotFound, "node not in graph")
		return
	}

	type neighbor struct {
		ID     string  `json:"id"`
		Weight float64 `json:"weight"`
	}
	out := make([]neighbor, 0)
	for _, e := range g.Neighbors(id) {
		other := e.Target
		if other == id {
			other = e.Source
		}
		out = append(out, neighbor{ID: other, Weight: e.Weight})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":        id,
		"neighbors": out,
	})
}

func (s *Server) loadNode(w http.ResponseWriter, id string) (*store.Node, bool) {
	probe := store.Node{ID: id}
	if err := probe.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	node, err := s.nodes.Get(id)
	if err == nil {
		return node, true
	}
	if errors.Is(err, store.ErrNodeNotFound) {
		writeError(w, http.StatusNotFound, "node not found")
		return nil, false
	}
	s.log.Error("api: get node", zap.String("id", id), zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
	return nil, false
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "run ledger disabled")
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := s.db.ListRuns(limit)
	if err != nil {
		s.log.Error("api: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "run ledger disabled")
		return
	}

	runID := chi.URLParam(r, "runID")
	run, err := s.db.GetRun(runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	merges, err := s.db.ListMerges(runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if merges == nil {
		merges = []store.Merge{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run":    run,
		"merges": merges,
	})
}
