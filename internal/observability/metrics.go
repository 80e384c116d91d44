// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Batch executor metrics
	BatchesTotal     *prometheus.CounterVec
	BatchDescriptors prometheus.Histogram
	BatchLatency     prometheus.Histogram
	CallFailures     *prometheus.CounterVec
	HeadsReceived    prometheus.Counter
	HighestBlockSeen prometheus.Gauge
	WSReconnects     prometheus.Counter

	// Aggregation metrics
	AggregationsTotal   *prometheus.CounterVec
	AggregationDuration prometheus.Histogram
	DefaultedFields     *prometheus.CounterVec
	AllocationsResolved *prometheus.CounterVec

	// Storage metrics
	SnapshotsStored    prometheus.Counter
	MetricPointsStored prometheus.Counter
	DBQueryDuration    *prometheus.HistogramVec
	DBQueryErrors      *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRefresh prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg. A nil reg
// uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "stakelens"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Batch executor metrics
		BatchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "batches_total",
			Help:      "Total number of batch round trips by status",
		}, []string{"status"}),
		BatchDescriptors: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "batch_descriptors",
			Help:      "Number of read descriptors per batch",
			Buckets:   []float64{1, 5, 10, 20, 40, 80, 160},
		}),
		BatchLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "batch_latency_seconds",
			Help:      "Batch round trip latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		CallFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "call_failures_total",
			Help:      "Total number of failed reads inside successful batches by method",
		}, []string{"method"}),
		HeadsReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "heads_received_total",
			Help:      "Total number of newHeads notifications received",
		}),
		HighestBlockSeen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "highest_block_seen",
			Help:      "Highest block number seen",
		}),
		WSReconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnects",
		}),

		// Aggregation metrics
		AggregationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "aggregations_total",
			Help:      "Total number of project aggregations by outcome",
		}, []string{"outcome"}),
		AggregationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "duration_seconds",
			Help:      "Project aggregation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		DefaultedFields: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "defaulted_fields_total",
			Help:      "Total number of fields replaced by their default",
		}, []string{"field"}),
		AllocationsResolved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "allocation",
			Name:      "resolutions_total",
			Help:      "Total number of allocation resolutions by selected status",
		}, []string{"status"}),

		// Storage metrics
		SnapshotsStored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "snapshots_stored_total",
			Help:      "Total number of snapshots stored",
		}),
		MetricPointsStored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "metric_points_stored_total",
			Help:      "Total number of metric points stored",
		}),
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRefresh: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of last successful watcher refresh",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordBatch records one batch round trip.
func RecordBatch(size int, seconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.BatchesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.BatchDescriptors.Observe(float64(size))
	DefaultMetrics.BatchLatency.Observe(seconds)
}

// RecordCallFailure records a failed read inside a successful batch.
func RecordCallFailure(method string) {
	DefaultMetrics.CallFailures.WithLabelValues(method).Inc()
}

// RecordHead records a received chain head.
func RecordHead(number uint64) {
	DefaultMetrics.HeadsReceived.Inc()
	DefaultMetrics.HighestBlockSeen.Set(float64(number))
}

// RecordWSReconnect increments the WebSocket reconnect counter.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// RecordAggregation records a project aggregation and its defaulted fields.
func RecordAggregation(outcome string, seconds float64, defaulted []string) {
	DefaultMetrics.AggregationsTotal.WithLabelValues(outcome).Inc()
	DefaultMetrics.AggregationDuration.Observe(seconds)
	for _, f := range defaulted {
		DefaultMetrics.DefaultedFields.WithLabelValues(f).Inc()
	}
}

// RecordAllocation records an allocation resolution by selected status.
func RecordAllocation(status string) {
	DefaultMetrics.AllocationsResolved.WithLabelValues(status).Inc()
}

// RecordSnapshotStored increments the stored snapshot counter.
func RecordSnapshotStored() {
	DefaultMetrics.SnapshotsStored.Inc()
}

// RecordMetricPointsStored adds n stored metric points.
func RecordMetricPointsStored(n int) {
	DefaultMetrics.MetricPointsStored.Add(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordRefresh marks a successful watcher refresh.
func RecordRefresh(unix int64) {
	DefaultMetrics.LastSuccessfulRefresh.Set(float64(unix))
}
