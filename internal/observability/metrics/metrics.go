// Package metrics exposes application-level prometheus instruments. All
// record methods are nil-safe so wiring stays optional in tests and tooling.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	workflowTransitions *prometheus.CounterVec
	ledgerEntries       *prometheus.CounterVec
	sweepCorrections    *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

// New registers the instruments on the default registry, alongside the gorm
// pool metrics the database layer publishes there.
func New() *Metrics {
	return &Metrics{
		workflowTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chriis_workflow_transitions_total",
			Help: "Approval workflow transitions by outcome.",
		}, []string{"transition"}),
		ledgerEntries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chriis_ledger_entries_total",
			Help: "Ledger entries created by type.",
		}, []string{"type"}),
		sweepCorrections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chriis_sweep_corrections_total",
			Help: "Reconciliation sweep corrections by pass.",
		}, []string{"pass"}),
		httpRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chriis_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chriis_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) RecordWorkflowTransition(transition string) {
	if m == nil {
		return
	}
	m.workflowTransitions.WithLabelValues(strings.TrimSpace(transition)).Inc()
}

func (m *Metrics) RecordLedgerEntry(entryType string) {
	if m == nil {
		return
	}
	m.ledgerEntries.WithLabelValues(strings.TrimSpace(entryType)).Inc()
}

func (m *Metrics) RecordSweepCorrections(pass string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.sweepCorrections.WithLabelValues(strings.TrimSpace(pass)).Add(float64(count))
}

// Handler serves the default registry, including gorm pool metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(
			c.Request.Method, route, strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).
			Observe(time.Since(start).Seconds())
	}
}
