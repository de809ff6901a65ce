package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tree build metrics
	TreeBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fmm_tree_builds_total",
			Help: "Total number of tree builds",
		},
		[]string{"status"}, // status: success, cached, invalid, outside_root, timeout, failed
	)

	TreeBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fmm_tree_build_duration_seconds",
			Help:    "Duration of tree builds in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
	)

	TreeDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fmm_tree_depth",
			Help:    "Maximum node depth of built trees",
			Buckets: []float64{0, 1, 2, 4, 8, 12, 16, 24, 32, 64},
		},
	)

	TreeLeaves = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fmm_tree_leaves",
			Help:    "Number of leaves in built trees",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	TreeSources = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fmm_tree_sources",
			Help:    "Number of sources submitted per build",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	TreeDiagnosticsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fmm_tree_diagnostics_total",
			Help: "Total number of build diagnostics by kind",
		},
		[]string{"kind"}, // kind: outside_root, unassigned, depth_limit
	)

	// Tree cache metrics
	TreeCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fmm_tree_cache_hits_total",
			Help: "Total number of tree cache hits",
		},
	)

	TreeCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fmm_tree_cache_misses_total",
			Help: "Total number of tree cache misses",
		},
	)

	TreeCacheItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fmm_tree_cache_items",
			Help: "Current number of trees in the cache",
		},
	)

	TreeCacheCost = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fmm_tree_cache_cost_bytes",
			Help: "Approximate cost of cached trees",
		},
	)

	TreeCacheEvictions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fmm_tree_cache_evictions",
			Help: "Trees evicted from the cache since startup",
		},
	)

	// API request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"route"},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"scope"}, // scope: global, ip
	)
)
