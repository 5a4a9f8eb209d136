package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davidahmann/specgate/internal/auth"
	"github.com/davidahmann/specgate/internal/htmlconv"
	"github.com/davidahmann/specgate/internal/ledger"
	"github.com/davidahmann/specgate/internal/lint"
	"github.com/davidahmann/specgate/internal/logging"
	"github.com/davidahmann/specgate/internal/metrics"
	"github.com/davidahmann/specgate/internal/workflow"
	"github.com/davidahmann/specgate/pkg/types"
)

const maxBodyBytes = 4 << 20

type Handler struct {
	Auth      auth.Authenticator
	Engine    *lint.Engine
	Workflows *workflow.Manager
	Metrics   *metrics.Metrics
	Log       *logging.Logger

	// Reports and ReportDir are optional archives for lint and route results.
	Reports   ledger.Store
	ReportDir string
	Now       func() time.Time
}

// DocumentRequest carries one document. Format "html" runs the storage HTML
// converter first; anything else is treated as template text.
type DocumentRequest struct {
	Text       string            `json:"text"`
	Title      string            `json:"title,omitempty"`
	URL        string            `json:"url,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Format     string            `json:"format,omitempty"`
	CheckDepth string            `json:"check_depth,omitempty"`
}

type BatchRequest struct {
	Documents  []DocumentRequest `json:"documents"`
	CheckDepth string            `json:"check_depth,omitempty"`
}

type RouteResponse struct {
	Result   types.QualityResult  `json:"result"`
	Workflow types.WorkflowRecord `json:"workflow"`
}

type StatusUpdateRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
}

func (h *Handler) Lint(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAuth(w, r) {
		return
	}
	if h.Engine == nil {
		writeError(w, http.StatusNotImplemented, "lint engine not configured")
		return
	}

	var req DocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, depth, err := req.document()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.Engine.AnalyzeAndScore(r.Context(), doc, depth)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.archive(w, doc, result)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) LintBatch(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAuth(w, r) {
		return
	}
	if h.Engine == nil {
		writeError(w, http.StatusNotImplemented, "lint engine not configured")
		return
	}

	var req BatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	depth, ok := types.ParseCheckDepth(req.CheckDepth)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid check_depth %q", req.CheckDepth))
		return
	}

	docs := make([]types.Document, 0, len(req.Documents))
	for i, d := range req.Documents {
		doc, err := d.toDocument()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("documents[%d]: %v", i, err))
			return
		}
		docs = append(docs, doc)
	}

	result, err := h.Engine.Batch(r.Context(), docs, depth)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Route lints the document and routes it in one call. Routing failures are
// reported inside the workflow record, not as HTTP errors.
func (h *Handler) Route(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAuth(w, r) {
		return
	}
	if h.Engine == nil || h.Workflows == nil {
		writeError(w, http.StatusNotImplemented, "workflow not configured")
		return
	}

	var req DocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, depth, err := req.document()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.Engine.AnalyzeAndScore(r.Context(), doc, depth)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	record := h.Workflows.Route(r.Context(), doc, result)
	h.archive(w, doc, result)
	writeJSON(w, http.StatusOK, RouteResponse{Result: result, Workflow: record})
}

func (h *Handler) WorkflowStatus(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAuth(w, r) {
		return
	}
	if h.Workflows == nil {
		writeError(w, http.StatusNotImplemented, "workflow not configured")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing workflow_id")
		return
	}
	record, err := h.Workflows.GetStatus(r.Context(), id)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) UpdateWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAuth(w, r) {
		return
	}
	if h.Workflows == nil {
		writeError(w, http.StatusNotImplemented, "workflow not configured")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing workflow_id")
		return
	}
	var req StatusUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	record, err := h.Workflows.UpdateStatus(r.Context(), id, req.Status, req.Comment)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) WorkflowSummary(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAuth(w, r) {
		return
	}
	if h.Workflows == nil {
		writeError(w, http.StatusNotImplemented, "workflow not configured")
		return
	}
	writeJSON(w, http.StatusOK, h.Workflows.Summary())
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]string{"status": "ok"}
	if h.Engine != nil {
		payload["rules_hash"] = h.Engine.RulesHash()
	}
	writeJSON(w, http.StatusOK, payload)
}

func (req DocumentRequest) document() (types.Document, types.CheckDepth, error) {
	depth, ok := types.ParseCheckDepth(req.CheckDepth)
	if !ok {
		return types.Document{}, "", fmt.Errorf("invalid check_depth %q", req.CheckDepth)
	}
	doc, err := req.toDocument()
	return doc, depth, err
}

func (req DocumentRequest) toDocument() (types.Document, error) {
	doc := types.Document{Text: req.Text, Title: req.Title, URL: req.URL, Metadata: req.Metadata}
	switch req.Format {
	case "", "text":
		return doc, nil
	case "html":
		converted, err := htmlconv.Convert(req.Text)
		if err != nil {
			return types.Document{}, err
		}
		doc.Text = converted.Text
		if doc.Title == "" {
			doc.Title = converted.Title
		}
		return doc, nil
	default:
		return types.Document{}, fmt.Errorf("unsupported format %q", req.Format)
	}
}

func (h *Handler) ensureAuth(w http.ResponseWriter, r *http.Request) bool {
	if h.Auth == nil {
		return true
	}
	if _, err := h.Auth.Authenticate(r); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return false
	}
	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, workflow.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
