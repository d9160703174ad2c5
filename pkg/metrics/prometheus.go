package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	snapshots *prometheus.CounterVec
	errors    *prometheus.CounterVec
	lastPrice *prometheus.GaugeVec
	poolSize  *prometheus.GaugeVec
	evictions prometheus.Counter
	latency   *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		snapshots: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinsentry_snapshots_ingested_total",
				Help: "Total coin snapshots ingested per source",
			},
			[]string{"source", "symbol"},
		),
		errors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinsentry_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coinsentry_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		poolSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coinsentry_pool_size",
				Help: "Tracked coins per lifecycle status",
			},
			[]string{"status"},
		),
		evictions: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "coinsentry_pool_evictions_total",
				Help: "Coins evicted from the pool",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinsentry_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSnapshot records one ingested snapshot.
func (r *Recorder) RecordSnapshot(source, symbol string) {
	r.snapshots.WithLabelValues(source, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordPoolSize records the pool size for one status.
func (r *Recorder) RecordPoolSize(status string, n int) {
	r.poolSize.WithLabelValues(status).Set(float64(n))
}

// RecordEviction counts one pool eviction.
func (r *Recorder) RecordEviction() {
	r.evictions.Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
