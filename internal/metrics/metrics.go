// Package metrics registers the Prometheus metrics of the market data layer.
// All collectors live on the default registry and are served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups counts facade cache lookups labelled by data kind and
	// result ("hit", "miss").
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketdata_cache_lookups_total",
			Help: "Cache lookups by data kind and result.",
		},
		[]string{"kind", "result"},
	)

	// CacheSwept counts entries removed by the periodic expiry sweep.
	CacheSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketdata_cache_swept_total",
			Help: "Expired cache entries removed by the background sweep.",
		},
	)

	// QueueDepth is the number of operations waiting in a limiter queue.
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketdata_limiter_queue_depth",
			Help: "Operations waiting for dispatch per limiter.",
		},
		[]string{"limiter"},
	)

	// Dispatches counts operations dispatched by a limiter labelled by
	// outcome ("success", "error", "timeout", "cancelled").
	Dispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketdata_limiter_dispatches_total",
			Help: "Operations dispatched by the serialized limiter.",
		},
		[]string{"limiter", "outcome"},
	)

	// Retries counts backoff retries taken after a rate-limited attempt.
	Retries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketdata_retries_total",
			Help: "Retries taken after an upstream 429.",
		},
	)

	// UpstreamErrors counts failed upstream calls by class
	// ("rate_limited", "status", "timeout", "transport", "malformed").
	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketdata_upstream_errors_total",
			Help: "Failed upstream calls by error class.",
		},
		[]string{"class"},
	)

	// UpstreamDuration observes upstream call latency in seconds.
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketdata_upstream_duration_seconds",
			Help:    "Upstream call duration in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	// HTTPRequests counts served API requests by route and status code.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketdata_http_requests_total",
			Help: "API requests served by route and status.",
		},
		[]string{"route", "status"},
	)

	// RateLimitRejections counts inbound requests rejected by the client limiter.
	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketdata_rate_limit_rejections_total",
			Help: "Inbound requests rejected by rate limiting.",
		},
	)
)
