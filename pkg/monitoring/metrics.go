// Package monitoring defines the Prometheus metrics of the scene builder.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Service name for metrics
	ServiceName = "osmterrain"
)

// Build status labels
const (
	StatusSuccess  = "success"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

var (
	// Build metrics
	BuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmterrain_builds_total",
			Help: "Total number of scene builds",
		},
		[]string{"status"},
	)

	BuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "osmterrain_stage_duration_seconds",
			Help:    "Scene build stage duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"stage"},
	)

	MeshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmterrain_meshes_total",
			Help: "Total number of mesh descriptors emitted",
		},
		[]string{"category"},
	)

	FeaturesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmterrain_features_skipped_total",
			Help: "Total number of features skipped during a build",
		},
		[]string{"class"},
	)

	PlacedObjects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmterrain_placed_objects_total",
			Help: "Total number of placed vegetation objects",
		},
		[]string{"species"},
	)

	FieldDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "osmterrain_elevation_unavailable_total",
			Help: "Builds that continued on a flat field because elevation was unavailable",
		},
	)

	// MCP request metrics
	MCPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmterrain_mcp_requests_total",
			Help: "Total number of MCP requests processed",
		},
		[]string{"tool", "status"},
	)

	MCPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "osmterrain_mcp_request_duration_seconds",
			Help:    "MCP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"tool"},
	)

	// External service metrics
	ExternalServiceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmterrain_external_service_requests_total",
			Help: "Total number of external service requests",
		},
		[]string{"service", "operation", "status"},
	)

	ExternalServiceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "osmterrain_external_service_request_duration_seconds",
			Help:    "External service request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"service", "operation"},
	)

	RateLimitWaitTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "osmterrain_rate_limit_wait_duration_seconds",
			Help:    "Time spent waiting for rate limits",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"service"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmterrain_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmterrain_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "osmterrain_cache_size",
			Help: "Current number of items in cache",
		},
		[]string{"cache_type"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmterrain_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordBuild counts a finished build
func RecordBuild(status string) {
	BuildsTotal.WithLabelValues(status).Inc()
}

// RecordStage observes the duration of one pipeline stage
func RecordStage(stage string, duration time.Duration) {
	BuildDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func RecordMeshes(category string, n int) {
	MeshesTotal.WithLabelValues(category).Add(float64(n))
}

func RecordSkipped(class string) {
	FeaturesSkipped.WithLabelValues(class).Inc()
}

func RecordPlaced(species string, n int) {
	PlacedObjects.WithLabelValues(species).Add(float64(n))
}

func RecordFieldDegraded() {
	FieldDegraded.Inc()
}

func RecordMCPRequest(tool string, duration time.Duration, success bool) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}
	MCPRequestsTotal.WithLabelValues(tool, status).Inc()
	MCPRequestDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

func RecordExternalServiceRequest(service, operation string, duration time.Duration, success bool) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}
	ExternalServiceRequestsTotal.WithLabelValues(service, operation, status).Inc()
	ExternalServiceRequestDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func RecordCacheHit(cacheType string) {
	CacheHits.WithLabelValues(cacheType).Inc()
}

func RecordCacheMiss(cacheType string) {
	CacheMisses.WithLabelValues(cacheType).Inc()
}

func UpdateCacheSize(cacheType string, size int) {
	CacheSize.WithLabelValues(cacheType).Set(float64(size))
}

func RecordRateLimitWait(service string, duration time.Duration) {
	RateLimitWaitTime.WithLabelValues(service).Observe(duration.Seconds())
}

func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
