package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("parse", 150*time.Millisecond)
	pr.ObserveRunDuration(500 * time.Millisecond)
	pr.IncDocumentOutcome(DocumentPublished)
	pr.IncDocumentOutcome(DocumentPublished)
	pr.IncDocumentOutcome(DocumentFailed)
	pr.IncDiagnostic("DuplicatePermalink", "error")
	pr.IncRunOutcome(RunWarning)
	pr.SetWorkers(4)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)

	assert.InDelta(t, 2, value(t, reg, "postbuilder_documents_total", "published"), 0)
	assert.InDelta(t, 1, value(t, reg, "postbuilder_diagnostics_total", "DuplicatePermalink", "error"), 0)
	assert.InDelta(t, 4, value(t, reg, "postbuilder_workers"), 0)
	assert.InDelta(t, 0.5, value(t, reg, "postbuilder_last_run_duration_seconds"), 0.0001)
}

// value returns the counter or gauge sample of name whose label values equal
// labels, in label order.
func value(t *testing.T, reg *prom.Registry, name string, labels ...string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			pairs := m.GetLabel()
			if len(pairs) != len(labels) {
				continue
			}
			match := true
			for i, lp := range pairs {
				if lp.GetValue() != labels[i] {
					match = false
				}
			}
			if !match {
				continue
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestPrometheusRecorder_NilIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncRunOutcome(RunSuccess)
		pr.ObserveRunDuration(time.Second)
	})
}

func TestWriteTextfile(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncRunOutcome(RunSuccess)

	path := filepath.Join(t.TempDir(), "postbuilder.prom")
	require.NoError(t, WriteTextfile(reg, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `postbuilder_run_outcomes_total{outcome="success"} 1`)
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncDocumentOutcome(DocumentWarning)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `postbuilder_documents_total{outcome="warning"} 1`))
}
