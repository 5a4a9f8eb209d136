package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/davidahmann/specgate/internal/ledger"
	"github.com/davidahmann/specgate/internal/report"
	"github.com/davidahmann/specgate/pkg/types"
)

const reportIDHeader = "X-Specgate-Report-Id"

type reportSummary struct {
	ReportID      string `json:"report_id"`
	Score         int    `json:"score"`
	Level         string `json:"level"`
	DocumentTitle string `json:"document_title,omitempty"`
	DocumentURL   string `json:"document_url,omitempty"`
	RulesHash     string `json:"rules_hash,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// archive stores the assessment in the ledger and, when configured, the
// report directory. Failures are logged and counted but never fail the
// request that produced the result.
func (h *Handler) archive(w http.ResponseWriter, doc types.Document, result types.QualityResult) {
	if h.Reports == nil && h.ReportDir == "" {
		return
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	rep, err := report.Build(doc, result, now())
	if err != nil {
		h.archiveFailed(err, "build report")
		return
	}

	if h.Reports != nil {
		body, err := json.Marshal(rep)
		if err == nil {
			err = h.Reports.PutReport(ledger.ReportRecord{
				ReportID:      rep.ReportID,
				Score:         rep.Score,
				Level:         string(rep.Level),
				DocumentTitle: rep.DocumentTitle,
				DocumentURL:   rep.DocumentURL,
				RulesHash:     rep.RulesHash,
				BodyJSON:      body,
				CreatedAt:     rep.CreatedAt,
			})
		}
		if err != nil {
			h.archiveFailed(err, "store report")
			return
		}
	}
	if h.ReportDir != "" {
		if _, err := report.Write(h.ReportDir, rep); err != nil {
			h.archiveFailed(err, "write report file")
			return
		}
	}

	h.Metrics.ObserveArchive(nil)
	w.Header().Set(reportIDHeader, rep.ReportID)
}

func (h *Handler) archiveFailed(err error, msg string) {
	h.Metrics.ObserveArchive(err)
	if h.Log != nil {
		h.Log.Warn().Err(err).Msg(msg)
	}
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAuth(w, r) {
		return
	}
	if h.Reports == nil {
		writeError(w, http.StatusNotImplemented, "report ledger not configured")
		return
	}

	rec, ok := h.Reports.GetReport(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rec.BodyJSON)
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAuth(w, r) {
		return
	}
	if h.Reports == nil {
		writeError(w, http.StatusNotImplemented, "report ledger not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	recs, err := h.Reports.ListReports(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]reportSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, reportSummary{
			ReportID:      rec.ReportID,
			Score:         rec.Score,
			Level:         rec.Level,
			DocumentTitle: rec.DocumentTitle,
			DocumentURL:   rec.DocumentURL,
			RulesHash:     rec.RulesHash,
			CreatedAt:     rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": out})
}
