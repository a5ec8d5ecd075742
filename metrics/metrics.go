package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestCounter counts HTTP requests by status code, method, and path
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"status", "method", "path"},
	)

	// RequestDuration measures HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vault_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status", "method", "path"},
	)

	// RequestInProgress counts HTTP requests currently being processed
	RequestInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vault_http_requests_in_progress",
			Help: "Number of HTTP requests currently being processed",
		},
		[]string{"method", "path"},
	)

	// RateLimiterRejections counts rejected requests due to rate limiting
	RateLimiterRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_rate_limiter_rejections_total",
			Help: "Total number of requests rejected by rate limiter",
		},
		[]string{"ip"},
	)

	// UnlockRequests counts global unlock requests by outcome
	UnlockRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_unlock_requests_total",
			Help: "Total number of global unlock requests",
		},
		[]string{"outcome"}, // "won", "lost", "error"
	)

	// SolutionSubmissions counts event solution submissions by outcome
	SolutionSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_solution_submissions_total",
			Help: "Total number of event solution submissions",
		},
		[]string{"outcome"}, // "first", "already_completed", "incorrect", "error"
	)

	// FeedBroadcasts counts change feed notifications by entity type
	FeedBroadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_feed_broadcasts_total",
			Help: "Total number of change feed notifications broadcast",
		},
		[]string{"entity"},
	)

	// FeedClients tracks the number of connected websocket feed clients
	FeedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_feed_clients",
			Help: "Number of connected change feed websocket clients",
		},
	)

	// DatabaseOperationDuration measures database operation duration
	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vault_db_operation_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	// MemoryStats tracks memory usage stats
	MemoryStats = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vault_memory_stats_bytes",
			Help: "Memory statistics in bytes",
		},
		[]string{"type"},
	)

	// GoroutineCount tracks the number of goroutines
	GoroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_goroutine_count",
			Help: "Number of goroutines",
		},
	)
)

// RecordDBOperation records the duration of a database operation
func RecordDBOperation(operation string, table string, startTime time.Time) {
	duration := time.Since(startTime).Seconds()
	DatabaseOperationDuration.WithLabelValues(operation, table).Observe(duration)
}
