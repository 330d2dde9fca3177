// Package observability provides structured logging and Prometheus metrics
// for the Funnel client toolkit.
//
// Logging is JSON via stdlib slog, wrapped in a small Logger so call sites
// can chain WithField/WithError. Metrics cover outbound request volume and
// latency, auth-failure coordination outcomes, provider cache effectiveness,
// and lead-import throughput; the sync daemon serves them over HTTP via
// Metrics.Handler.
package observability
