package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rohankatakam/featurekg/internal/editor"
	"github.com/rohankatakam/featurekg/internal/graph"
	"github.com/rohankatakam/featurekg/internal/service"
)

// labelList accepts either ["Step","Face"] or "Step, Face".
type labelList []string

func (l *labelList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = editor.ParseLabels(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*l = editor.CleanLabels(list)
	return nil
}

// orDefault returns the labels, or the generic Node label when none are given.
func (l labelList) orDefault() []string {
	if len(l) == 0 {
		return []string{graph.LabelNode}
	}
	return l
}

// NodeRequest is the body of node create and update
type NodeRequest struct {
	Labels     labelList        `json:"labels"`
	Properties graph.Properties `json:"properties"`
}

// RelationshipRequest is the body of relationship create and update
type RelationshipRequest struct {
	SourceID   string           `json:"source_id" validate:"required"`
	TargetID   string           `json:"target_id" validate:"required"`
	Type       string           `json:"type"`
	Properties graph.Properties `json:"properties"`
}

func (req *RelationshipRequest) relType() string {
	if req.Type == "" {
		return graph.RelDefault
	}
	return req.Type
}

// editHandler serves node and relationship CRUD
type editHandler struct {
	svc    *service.Service
	logger *slog.Logger
}

// CreateNode handles POST /api/nodes
func (h *editHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	node, err := h.svc.CreateNode(r.Context(), req.Labels.orDefault(), req.Properties)
	if err != nil {
		fail(w, h.logger, "error creating node", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"node":    node,
		"success": true,
		"message": "Node created successfully: " + editor.DisplayTitle(node),
	})
}

// UpdateNode handles PUT /api/nodes/{nodeID}
func (h *editHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	node, err := h.svc.UpdateNode(r.Context(), chi.URLParam(r, "nodeID"), req.Labels.orDefault(), req.Properties)
	if err != nil {
		fail(w, h.logger, "error updating node", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"node":    node,
		"success": true,
		"message": "Node updated successfully: " + editor.DisplayTitle(node),
	})
}

// DeleteNode handles DELETE /api/nodes/{nodeID}
func (h *editHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "nodeID")
	if err := h.svc.DeleteNode(r.Context(), id); err != nil {
		fail(w, h.logger, "error deleting node", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Node deleted successfully: " + id,
	})
}

func (h *editHandler) decodeRelationship(w http.ResponseWriter, r *http.Request) (RelationshipRequest, bool) {
	var req RelationshipRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return req, false
	}
	if err := validateStruct(req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Missing source_id or target_id")
		return req, false
	}
	return req, true
}

// CreateRelationship handles POST /api/relationships
func (h *editHandler) CreateRelationship(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRelationship(w, r)
	if !ok {
		return
	}
	rel, err := h.svc.CreateRelationship(r.Context(), req.SourceID, req.TargetID, req.relType(), req.Properties)
	if err != nil {
		fail(w, h.logger, "error creating relationship", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"relationship": rel,
		"success":      true,
		"message":      "Relationship created successfully: " + rel.Type,
	})
}

// UpdateRelationship handles PUT /api/relationships/{relationshipID}
func (h *editHandler) UpdateRelationship(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRelationship(w, r)
	if !ok {
		return
	}
	rel, err := h.svc.UpdateRelationship(r.Context(), chi.URLParam(r, "relationshipID"),
		req.SourceID, req.TargetID, req.relType(), req.Properties)
	if err != nil {
		fail(w, h.logger, "error updating relationship", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"relationship": rel,
		"success":      true,
		"message":      "Relationship updated successfully: " + rel.Type,
	})
}

// DeleteRelationship handles DELETE /api/relationships/{relationshipID}
func (h *editHandler) DeleteRelationship(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "relationshipID")
	if err := h.svc.DeleteRelationship(r.Context(), id); err != nil {
		fail(w, h.logger, "error deleting relationship", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Relationship deleted successfully: " + id,
	})
}
