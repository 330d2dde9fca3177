package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics exposed by the client toolkit
type Metrics struct {
	// Outbound HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Auth coordination metrics
	BlockedRequestsTotal prometheus.Counter
	SessionExpiredTotal  prometheus.Counter
	FallbackLogoutsTotal prometheus.Counter

	// Provider cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// Lead import metrics
	ImportedLeadsTotal prometheus.Counter
	SkippedLeadsTotal  prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics. A nil registry
// creates a private one, which keeps parallel tests from colliding on
// duplicate registration.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funnel_client_requests_total",
				Help: "Total number of outbound API requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "funnel_client_request_duration_seconds",
				Help:    "Outbound API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		BlockedRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "funnel_client_blocked_requests_total",
			Help: "Requests rejected client-side during an auth-failure episode",
		}),
		SessionExpiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "funnel_client_session_expired_total",
			Help: "Responses classified as session-expired",
		}),
		FallbackLogoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "funnel_client_fallback_logouts_total",
			Help: "Auth-failure episodes resolved by the deadline fallback",
		}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "funnel_provider_cache_hits_total",
			Help: "Record lookups served from the provider LRU cache",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "funnel_provider_cache_misses_total",
			Help: "Record lookups that missed the provider LRU cache",
		}),
		ImportedLeadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "funnel_import_leads_total",
			Help: "Leads created through the Facebook import pipeline",
		}),
		SkippedLeadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "funnel_import_skipped_leads_total",
			Help: "Facebook leads skipped because the ledger already had them",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.BlockedRequestsTotal,
		m.SessionExpiredTotal,
		m.FallbackLogoutsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.ImportedLeadsTotal,
		m.SkippedLeadsTotal,
	)
	return m
}

// Handler returns an HTTP handler exposing the metrics registry, used by the
// sync daemon's metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
