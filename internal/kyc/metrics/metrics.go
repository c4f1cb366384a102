// Package metrics provides Prometheus metrics for the KYC workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ledger call outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
	OutcomeInvalid     = "invalid"
)

// Metrics contains all KYC workflow metrics.
type Metrics struct {
	LedgerCallDurationSeconds *prometheus.HistogramVec // by operation
	LedgerCallsTotal          *prometheus.CounterVec   // by operation and outcome
	LedgerBreakerOpen         prometheus.Gauge

	WorkflowTransitionsTotal *prometheus.CounterVec // by target state
	OrphanedUploadsTotal     prometheus.Counter

	PresignedURLsTotal *prometheus.CounterVec // by kind (upload, download)
	VerifiedReadsTotal *prometheus.CounterVec // by verified=true|false
}

// New registers all metrics with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LedgerCallDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "dkyc_ledger_call_duration_seconds",
			Help: "Duration of ledger gateway calls, including confirmation for writes",
			// writes wait for a block; reads should be sub-second
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15, 30, 60, 120},
		}, []string{"operation"}),

		LedgerCallsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dkyc_ledger_calls_total",
			Help: "Ledger gateway calls by operation and outcome",
		}, []string{"operation", "outcome"}),

		LedgerBreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "dkyc_ledger_breaker_open",
			Help: "1 while the ledger health breaker is open",
		}),

		WorkflowTransitionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dkyc_workflow_transitions_total",
			Help: "Submission workflow state transitions by target state",
		}, []string{"state"}),

		OrphanedUploadsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "dkyc_orphaned_uploads_total",
			Help: "Failed submissions that left an uploaded object without a ledger record",
		}),

		PresignedURLsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dkyc_presigned_urls_total",
			Help: "Presigned storage URLs issued by kind",
		}, []string{"kind"}),

		VerifiedReadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dkyc_retrievals_total",
			Help: "KYC record retrievals by derived verification status",
		}, []string{"verified"}),
	}
}

// ObserveLedgerCall records one gateway call.
func (m *Metrics) ObserveLedgerCall(operation, outcome string, durationSeconds float64) {
	m.LedgerCallDurationSeconds.WithLabelValues(operation).Observe(durationSeconds)
	m.LedgerCallsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if open {
		m.LedgerBreakerOpen.Set(1)
		return
	}
	m.LedgerBreakerOpen.Set(0)
}

func (m *Metrics) RecordTransition(state string) {
	m.WorkflowTransitionsTotal.WithLabelValues(state).Inc()
}

func (m *Metrics) RecordOrphanedUpload() {
	m.OrphanedUploadsTotal.Inc()
}

func (m *Metrics) RecordPresignedURL(kind string) {
	m.PresignedURLsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordRetrieval(verified bool) {
	label := "false"
	if verified {
		label = "true"
	}
	m.VerifiedReadsTotal.WithLabelValues(label).Inc()
}
