package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rohankatakam/featurekg/internal/service"
)

const defaultHistoryLimit = 20

// graphHandler serves connection management and read-only graph views
type graphHandler struct {
	svc    *service.Service
	logger *slog.Logger
}

// Health handles GET /api/health
func (h *graphHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.svc.Health())
}

// Reconnect handles POST /api/reconnect. A failed reconnect is reported in
// the body with a 200, the way the editor UI expects it.
func (h *graphHandler) Reconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reconnect(r.Context()); err != nil {
		h.logger.Error("reconnect failed", "error", err)
		respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "Database reconnection failed: " + err.Error(),
		})
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Database reconnected successfully",
	})
}

// TestConnection handles GET /api/test-connection
func (h *graphHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	test := h.svc.TestConnection(r.Context())
	result := "Connection normal"
	if !test.Connected {
		result = "Connection failed: " + test.Error
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"connected":     test.Connected,
		"test_result":   result,
		"database_info": test.Info,
		"neo4j_version": test.Version,
	})
}

// GraphData handles GET /api/graph
func (h *graphHandler) GraphData(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.GraphData(r.Context())
	if err != nil {
		fail(w, h.logger, "error getting graph data", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"nodes":         data.Nodes,
		"relationships": data.Relationships,
		"success":       true,
	})
}

// Labels handles GET /api/labels
func (h *graphHandler) Labels(w http.ResponseWriter, r *http.Request) {
	cat, err := h.svc.Labels(r.Context())
	if err != nil {
		fail(w, h.logger, "failed to get labels", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success":    true,
		"labels":     cat.AsMap(),
		"categories": cat,
	})
}

// DebugNodes handles GET /api/debug/nodes
func (h *graphHandler) DebugNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.svc.DebugNodes(r.Context())
	if err != nil {
		fail(w, h.logger, "failed to sample nodes", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"nodes": nodes,
		"count": len(nodes),
	})
}

// Repositories handles GET /api/repositories
func (h *graphHandler) Repositories(w http.ResponseWriter, r *http.Request) {
	repos, err := h.svc.Repositories(r.Context())
	if err != nil {
		fail(w, h.logger, "failed to get the repository list", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success":      true,
		"repositories": repos,
	})
}

// RepositoryStructures handles GET /api/repositories/{repositoryID}/structures
func (h *graphHandler) RepositoryStructures(w http.ResponseWriter, r *http.Request) {
	cat, err := h.svc.RepositoryStructures(r.Context(), chi.URLParam(r, "repositoryID"))
	if err != nil {
		fail(w, h.logger, "failed to get repository structures", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success":    true,
		"labels":     cat.AsMap(),
		"categories": cat,
	})
}

// History handles GET /api/history?limit=N&kind=import_flat,export_flat
func (h *graphHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, h.logger, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	var kinds []string
	if s := r.URL.Query().Get("kind"); s != "" {
		kinds = strings.Split(s, ",")
	}

	entries, err := h.svc.History(r.Context(), limit, kinds...)
	if err != nil {
		fail(w, h.logger, "failed to read history", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success": true,
		"runs":    entries,
	})
}

// Run handles GET /api/history/{runID}
func (h *graphHandler) Run(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.Run(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		fail(w, h.logger, "failed to read run", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success": true,
		"run":     entry,
	})
}
