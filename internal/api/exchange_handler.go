package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rohankatakam/featurekg/internal/document"
	"github.com/rohankatakam/featurekg/internal/service"
)

const noLabelsMessage = "Please select at least one tag"

// ExportRequest selects the labels, and optionally the repository, of an export
type ExportRequest struct {
	Labels       []string `json:"labels" validate:"required,min=1"`
	RepositoryID string   `json:"repository_id"`
}

// exchangeHandler serves imports, exports and cleansing
type exchangeHandler struct {
	svc       *service.Service
	logger    *slog.Logger
	maxUpload int64
}

func (h *exchangeHandler) decodeExport(w http.ResponseWriter, r *http.Request) (ExportRequest, bool) {
	var req ExportRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return req, false
	}
	if err := validateStruct(req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, noLabelsMessage)
		return req, false
	}
	return req, true
}

// Export handles GET /api/export?format=xml|json. XML is the default.
func (h *exchangeHandler) Export(w http.ResponseWriter, r *http.Request) {
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", "xml":
		h.writeXML(w, r, "neo4j_export", nil, "")
	case "json", "flat":
		w.Header().Set("Content-Type", "application/json")
		if err := h.svc.ExportFlat().Encode(w); err != nil {
			h.logger.Error("failed to encode flat export", "error", err)
		}
	default:
		respondError(w, h.logger, http.StatusBadRequest, "Only xml and json export formats are supported")
	}
}

// ExportFullXML handles GET /api/export/xml/full
func (h *exchangeHandler) ExportFullXML(w http.ResponseWriter, r *http.Request) {
	h.writeXML(w, r, "neo4j_full_export", nil, "")
}

// ExportSelectiveXML handles POST /api/export/xml/selective
func (h *exchangeHandler) ExportSelectiveXML(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeExport(w, r)
	if !ok {
		return
	}
	h.writeXML(w, r, "selective_export", req.Labels, req.RepositoryID)
}

// ExportXML handles POST /api/export/xml
func (h *exchangeHandler) ExportXML(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeExport(w, r)
	if !ok {
		return
	}
	h.writeXML(w, r, "feature_export", req.Labels, "")
}

func (h *exchangeHandler) writeXML(w http.ResponseWriter, r *http.Request, prefix string, selected []string, repositoryID string) {
	body, err := h.svc.ExportHierarchicalXML(r.Context(), selected, repositoryID)
	if err != nil {
		fail(w, h.logger, "xml export failed", err)
		return
	}
	respondXML(w, prefix, body)
}

// ExportSelective handles POST /api/export/selective
func (h *exchangeHandler) ExportSelective(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeExport(w, r)
	if !ok {
		return
	}
	doc, err := h.svc.ExportSelective(r.Context(), req.Labels)
	if err != nil {
		fail(w, h.logger, "selective export failed", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := doc.Encode(w); err != nil {
		h.logger.Error("failed to encode selective export", "error", err)
	}
}

// ImportXML handles POST /api/import: a multipart upload with a "file" part
// holding a hierarchical XML document and a "repository_name" field.
func (h *exchangeHandler) ImportXML(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Please upload a file")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Please upload a file")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		respondError(w, h.logger, http.StatusBadRequest, "No file selected")
		return
	}
	repositoryName := strings.TrimSpace(r.FormValue("repository_name"))
	if repositoryName == "" {
		respondError(w, h.logger, http.StatusBadRequest, "Please provide a repository name")
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".xml") {
		respondError(w, h.logger, http.StatusBadRequest, "Unsupported file format, please upload an XML file")
		return
	}

	summary, err := h.svc.ImportHierarchicalXML(r.Context(), file, repositoryName)
	if err != nil {
		fail(w, h.logger, "xml import failed", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("XML import completed: %d nodes, %d relationships, Repository: %s",
			summary.NodesCreated, summary.RelationshipsCreated, repositoryName),
		"details": summary,
	})
}

// ImportJSON handles POST /api/import/json[?cleanse=true] with a flat
// document as the body.
func (h *exchangeHandler) ImportJSON(w http.ResponseWriter, r *http.Request) {
	cleanse := false
	if s := r.URL.Query().Get("cleanse"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			respondError(w, h.logger, http.StatusBadRequest, "cleanse must be true or false")
			return
		}
		cleanse = b
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	summary, err := h.svc.ImportFlatJSON(r.Context(), r.Body, cleanse)
	if err != nil {
		fail(w, h.logger, "json import failed", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("JSON import completed: %d nodes, %d relationships",
			summary.NodesCreated, summary.RelationshipsCreated),
		"details": summary,
	})
}

// Cleanse handles POST /api/cleanse: the body is a flat document, the
// response the repaired document and its before/after counts.
func (h *exchangeHandler) Cleanse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	doc, err := document.DecodeFlat(r.Body)
	if err != nil {
		fail(w, h.logger, "cleanse failed", err)
		return
	}
	cleaned, report := h.svc.Cleanse(doc)
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success":  true,
		"document": cleaned,
		"report":   report,
	})
}
