// Package metrics provides Prometheus metrics for specgate.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	LintTotal       *prometheus.CounterVec
	LintDuration    prometheus.Histogram
	ViolationsTotal *prometheus.CounterVec

	RoutesTotal      *prometheus.CounterVec
	TrackerCalls     *prometheus.CounterVec
	WorkflowsPending prometheus.Gauge

	ReportsArchived *prometheus.CounterVec

	HTTPRequestsTotal *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		LintTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "specgate_lint_total",
			Help: "Documents assessed, by quality level",
		}, []string{"level"}),
		LintDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "specgate_lint_duration_seconds",
			Help:    "Time spent assessing a document",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .5},
		}),
		ViolationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "specgate_violations_total",
			Help: "Template violations found, by type",
		}, []string{"type"}),
		RoutesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "specgate_routes_total",
			Help: "Workflows routed, by resulting status",
		}, []string{"status"}),
		TrackerCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "specgate_tracker_calls_total",
			Help: "Issue tracker calls, by operation and outcome",
		}, []string{"operation", "outcome"}),
		WorkflowsPending: f.NewGauge(prometheus.GaugeOpts{
			Name: "specgate_workflows_pending",
			Help: "Workflows awaiting a review decision",
		}),
		ReportsArchived: f.NewCounterVec(prometheus.CounterOpts{
			Name: "specgate_reports_archived_total",
			Help: "Quality reports written to the ledger, by outcome",
		}, []string{"outcome"}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "specgate_http_requests_total",
			Help: "HTTP requests, by route and status code",
		}, []string{"route", "code"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveLint is nil-safe so callers may run without metrics.
func (m *Metrics) ObserveLint(level string, violationTypes []string, d time.Duration) {
	if m == nil {
		return
	}
	m.LintTotal.WithLabelValues(level).Inc()
	m.LintDuration.Observe(d.Seconds())
	for _, t := range violationTypes {
		m.ViolationsTotal.WithLabelValues(t).Inc()
	}
}

func (m *Metrics) ObserveRoute(status string) {
	if m == nil {
		return
	}
	m.RoutesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveTrackerCall(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.TrackerCalls.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.WorkflowsPending.Set(float64(n))
}

func (m *Metrics) ObserveHTTP(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func (m *Metrics) ObserveArchive(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ReportsArchived.WithLabelValues(outcome).Inc()
}
