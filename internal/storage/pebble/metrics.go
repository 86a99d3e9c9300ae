package pebblestore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements MetricsHook with Prometheus collectors. It
// also implements prometheus.Collector so host applications can register it
// on their own registry; lumberjack never serves an endpoint itself.
type PrometheusMetrics struct {
	writeLatency  prometheus.Histogram
	readLatency   prometheus.Histogram
	commitLatency prometheus.Histogram

	writeBytes  prometheus.Counter
	readBytes   prometheus.Counter
	commitOps   prometheus.Counter
	commitBytes prometheus.Counter
}

var _ MetricsHook = (*PrometheusMetrics)(nil)
var _ prometheus.Collector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics builds a metrics hook under the given namespace
// (typically "lumberjack").
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	return &PrometheusMetrics{
		writeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "write_duration_seconds",
			Help:      "Latency of single-key writes.",
			Buckets:   prometheus.DefBuckets,
		}),
		readLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "read_duration_seconds",
			Help:      "Latency of point reads.",
			Buckets:   prometheus.DefBuckets,
		}),
		commitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "batch_commit_duration_seconds",
			Help:      "Latency of batch commits.",
			Buckets:   prometheus.DefBuckets,
		}),
		writeBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "write_bytes_total",
			Help:      "Bytes written via single-key writes.",
		}),
		readBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "read_bytes_total",
			Help:      "Bytes returned by point reads.",
		}),
		commitOps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "batch_commit_ops_total",
			Help:      "Keys committed via batches.",
		}),
		commitBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "batch_commit_bytes_total",
			Help:      "Encoded batch bytes committed.",
		}),
	}
}

// ObserveWrite implements MetricsHook.
func (m *PrometheusMetrics) ObserveWrite(elapsed time.Duration, bytes int) {
	m.writeLatency.Observe(elapsed.Seconds())
	m.writeBytes.Add(float64(bytes))
}

// ObserveRead implements MetricsHook.
func (m *PrometheusMetrics) ObserveRead(elapsed time.Duration, bytes int) {
	m.readLatency.Observe(elapsed.Seconds())
	m.readBytes.Add(float64(bytes))
}

// ObserveBatchCommit implements MetricsHook.
func (m *PrometheusMetrics) ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int) {
	m.commitLatency.Observe(elapsed.Seconds())
	m.commitOps.Add(float64(numOps))
	m.commitBytes.Add(float64(bytes))
}

// Describe implements prometheus.Collector.
func (m *PrometheusMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.writeLatency.Describe(ch)
	m.readLatency.Describe(ch)
	m.commitLatency.Describe(ch)
	m.writeBytes.Describe(ch)
	m.readBytes.Describe(ch)
	m.commitOps.Describe(ch)
	m.commitBytes.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *PrometheusMetrics) Collect(ch chan<- prometheus.Metric) {
	m.writeLatency.Collect(ch)
	m.readLatency.Collect(ch)
	m.commitLatency.Collect(ch)
	m.writeBytes.Collect(ch)
	m.readBytes.Collect(ch)
	m.commitOps.Collect(ch)
	m.commitBytes.Collect(ch)
}
