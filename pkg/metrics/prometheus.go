package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchesTotal *prometheus.CounterVec
	alertsTotal  *prometheus.CounterVec
	lastClose    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropull_fetches_total",
				Help: "Total number of vendor fetches by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		alertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropull_alerts_total",
				Help: "Total number of alert signals raised",
			},
			[]string{"code", "kind"},
		),
		lastClose: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "macropull_last_close",
				Help: "Last known close or latest price per instrument",
			},
			[]string{"code"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "macropull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordFetch records one vendor fetch attempt outcome.
func (r *Recorder) RecordFetch(endpoint, outcome string) {
	r.fetchesTotal.WithLabelValues(endpoint, outcome).Inc()
}

// RecordAlert records an alert signal.
func (r *Recorder) RecordAlert(code, kind string) {
	r.alertsTotal.WithLabelValues(code, kind).Inc()
}

// RecordLastClose records the last known price for an instrument.
func (r *Recorder) RecordLastClose(code string, price float64) {
	r.lastClose.WithLabelValues(code).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
