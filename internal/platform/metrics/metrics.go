package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()

	// DistanceBatches counts distance-source batch queries by source and outcome (ok, error)
	DistanceBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "distance_batches_total", Help: "Distance source batch queries by source and status."},
		[]string{"source", "status"},
	)
	// MissingElements counts pairs a successful batch could not resolve
	MissingElements = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "distance_missing_elements_total", Help: "Unresolved pairs inside successful batches."},
		[]string{"source"},
	)
	// MatrixFallbacks counts buckets routed on great-circle distances
	MatrixFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "distance_matrix_fallbacks_total", Help: "Distance matrices replaced by the great-circle estimate."},
	)
	// BucketsPlanned counts sequenced (territory, day) buckets
	BucketsPlanned = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "buckets_planned_total", Help: "Territory/day buckets sequenced."},
	)
	// PlanDuration records end-to-end planning time in seconds
	PlanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "plan_duration_seconds", Help: "Planning run duration in seconds.", Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300}},
	)

	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on Registry. Safe to call repeatedly.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(DistanceBatches)
		Registry.MustRegister(MissingElements)
		Registry.MustRegister(MatrixFallbacks)
		Registry.MustRegister(BucketsPlanned)
		Registry.MustRegister(PlanDuration)
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
