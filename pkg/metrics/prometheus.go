package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	refreshTotal  *prometheus.CounterVec
	snapshotGauge prometheus.Gauge
	ledgerOps     *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		refreshTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flipsight_refresh_total",
				Help: "Total number of feed refresh runs by kind",
			},
			[]string{"kind"},
		),
		snapshotGauge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "flipsight_snapshots",
				Help: "Number of item snapshots produced by the last rebuild",
			},
		),
		ledgerOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flipsight_ledger_ops_total",
				Help: "Total number of ledger mutations by operation",
			},
			[]string{"op"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flipsight_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flipsight_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRefresh records a completed refresh run.
func (r *Recorder) RecordRefresh(kind string) {
	r.refreshTotal.WithLabelValues(kind).Inc()
}

// RecordSnapshots records the size of the latest snapshot rebuild.
func (r *Recorder) RecordSnapshots(count int) {
	r.snapshotGauge.Set(float64(count))
}

// RecordLedgerOp records a ledger mutation.
func (r *Recorder) RecordLedgerOp(op string) {
	r.ledgerOps.WithLabelValues(op).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
