package api

import (
	"net/http"
	"time"
)

func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()
	h.handle(mux, "POST /v1/lint", "lint", h.Lint)
	h.handle(mux, "POST /v1/lint/batch", "lint_batch", h.LintBatch)
	h.handle(mux, "POST /v1/route", "route", h.Route)
	h.handle(mux, "GET /v1/workflows", "workflow_summary", h.WorkflowSummary)
	h.handle(mux, "GET /v1/workflows/{id}", "workflow_status", h.WorkflowStatus)
	h.handle(mux, "POST /v1/workflows/{id}/status", "workflow_update", h.UpdateWorkflowStatus)
	h.handle(mux, "GET /v1/reports", "report_list", h.ListReports)
	h.handle(mux, "GET /v1/reports/{id}", "report_get", h.GetReport)
	h.handle(mux, "GET /healthz", "health", h.Health)
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics.Handler())
	}
	return mux
}

func (h *Handler) handle(mux *http.ServeMux, pattern, route string, fn http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		fn(rec, r)
		h.Metrics.ObserveHTTP(route, rec.code)
		if h.Log != nil {
			h.Log.Debug().
				Str("route", route).
				Int("code", rec.code).
				Dur("duration", time.Since(start)).
				Msg("http request")
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}
