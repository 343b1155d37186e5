package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	refreshes   *prometheus.CounterVec
	published   *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	lastWeight  *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

// New creates a recorder whose collectors are registered on reg.
// A nil reg falls back to the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		refreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantdash_refresh_total",
				Help: "Dashboard refresh attempts by outcome",
			},
			[]string{"device", "result"},
		),
		published: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantdash_published_total",
				Help: "Bundle summaries delivered to a downstream backend",
			},
			[]string{"backend", "device"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantdash_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastWeight: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "plantdash_last_weight",
				Help: "Most recent hourly weight reported by a device",
			},
			[]string{"device"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plantdash_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRefresh counts one refresh attempt.
func (r *Recorder) RecordRefresh(device, result string) {
	r.refreshes.WithLabelValues(device, result).Inc()
}

// RecordPublished records a summary sent to a backend.
func (r *Recorder) RecordPublished(backend, device string) {
	r.published.WithLabelValues(backend, device).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastWeight records the last hourly weight for a device.
func (r *Recorder) RecordLastWeight(device string, weight float64) {
	r.lastWeight.WithLabelValues(device).Set(weight)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
