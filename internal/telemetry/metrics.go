// Package telemetry provides application-level observability for the HCM portal.
//
// All metrics are registered against the default Prometheus registry and are
// served on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<HCM_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is NOT served by the Gin router so the
// scrape path stays off the public ingress and avoids rate-limiting middleware.
//
// Metric groups:
//
//   - HTTP request counters and latency histograms (labelled by route template,
//     not raw URL, to keep label cardinality bounded)
//   - Session bootstrap outcome counter (labelled by outcome kind)
//   - SSO redirect counters (issued / fallback / failed, by system)
//   - Snapshot cache hit/miss counters
//   - Database connection pool gauge (polled every 30 s)
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
// The path label holds the Gin route template (e.g. /api/v1/sso/:command),
// never the raw URL.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// BootstrapOutcomesTotal counts completed session bootstrap passes by terminal
// outcome kind (active, prehire_redirect, quickhire_in_progress,
// enrollment_incomplete_redirect, terminated_redirect, inactive_logout, error).
// A rising error rate here is the first signal that the upstream profile
// service is unhealthy.
//
// Example PromQL:
//   - Outcome mix:      sum by (outcome) (rate(session_bootstrap_outcomes_total[15m]))
//   - Error alert:      increase(session_bootstrap_outcomes_total{outcome="error"}[10m]) > 5
var BootstrapOutcomesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "session_bootstrap_outcomes_total",
		Help: "Total number of session bootstrap passes, by terminal outcome kind.",
	},
	[]string{"outcome"},
)

// SSO redirect metrics — labelled by external system name.
//
// SSORedirectsIssuedTotal counts signed URLs successfully handed to the client.
// SSORedirectFallbacksTotal counts executions that fell back to the public
// login URL. SSORedirectFailuresTotal counts executions that ended in a
// notification-only failure.
var (
	SSORedirectsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sso_redirects_issued_total",
			Help: "Total number of signed SSO redirect URLs issued, by external system.",
		},
		[]string{"system"},
	)

	SSORedirectFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sso_redirect_fallbacks_total",
			Help: "Total number of SSO executions that opened the public fallback URL, by external system.",
		},
		[]string{"system"},
	)

	SSORedirectFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sso_redirect_failures_total",
			Help: "Total number of SSO executions that surfaced a failure notification, by external system.",
		},
		[]string{"system"},
	)
)

// Snapshot cache metrics. A persistently low hit rate usually means the TTL is
// shorter than typical session length.
var (
	SnapshotCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_snapshot_cache_hits_total",
			Help: "Total number of bootstrap passes served from the snapshot cache.",
		},
	)

	SnapshotCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_snapshot_cache_misses_total",
			Help: "Total number of bootstrap passes that had to refetch the upstream profile.",
		},
	)
)

// DBOpenConnections tracks the number of open connections currently held by
// the sql.DB pool. Sampled every 30 seconds by StartDBStatsCollector rather
// than per-request to avoid the overhead of sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB
// connection pool statistics every 30 seconds and updates the DBOpenConnections
// gauge. The goroutine exits cleanly when the database becomes unreachable,
// which happens automatically when the application shuts down and defers
// db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
