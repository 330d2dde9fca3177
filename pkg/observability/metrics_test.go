package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersAndCounts(t *testing.T) {
	m := NewMetrics(nil)

	m.RequestsTotal.WithLabelValues("GET", "200").Inc()
	m.RequestsTotal.WithLabelValues("GET", "200").Inc()
	m.BlockedRequestsTotal.Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BlockedRequestsTotal))
}

func TestMetricsHandlerServesRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.ImportedLeadsTotal.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "funnel_import_leads_total 1")
}
