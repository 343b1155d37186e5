package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RenderMetrics tracks chart rendering per output format.
type RenderMetrics struct {
	latency *prometheus.HistogramVec
	bytes   *prometheus.CounterVec
	errors  *prometheus.CounterVec
}

// NewRenderMetrics registers the render collectors on reg.
func NewRenderMetrics(reg prometheus.Registerer) *RenderMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &RenderMetrics{
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "plantdash",
				Subsystem: "render",
				Name:      "latency_seconds",
				Help:      "Time spent rendering a dashboard view",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"format"},
		),
		bytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "plantdash",
				Subsystem: "render",
				Name:      "bytes_total",
				Help:      "Bytes written by renderers",
			},
			[]string{"format"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "plantdash",
				Subsystem: "render",
				Name:      "errors_total",
				Help:      "Render failures by format",
			},
			[]string{"format"},
		),
	}
}

// Observe records one render call.
func (m *RenderMetrics) Observe(format string, bytes int64, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(format).Observe(d.Seconds())
	m.bytes.WithLabelValues(format).Add(float64(bytes))
	if err != nil {
		m.errors.WithLabelValues(format).Inc()
	}
}
