package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestLedgerCallMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveLedgerCall("submit", OutcomeOK, 1.5)
	m.ObserveLedgerCall("submit", OutcomeRejected, 0.4)
	m.ObserveLedgerCall("submit", OutcomeRejected, 0.3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerCallsTotal.WithLabelValues("submit", OutcomeOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LedgerCallsTotal.WithLabelValues("submit", OutcomeRejected)))
}

func TestBreakerGauge(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetBreakerOpen(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerBreakerOpen))
	m.SetBreakerOpen(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LedgerBreakerOpen))
}

func TestWorkflowCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordTransition("Committed")
	m.RecordOrphanedUpload()
	m.RecordPresignedURL("upload")
	m.RecordRetrieval(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkflowTransitionsTotal.WithLabelValues("Committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrphanedUploadsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PresignedURLsTotal.WithLabelValues("upload")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VerifiedReadsTotal.WithLabelValues("true")))
}
