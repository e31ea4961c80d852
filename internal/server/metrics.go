package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// renderMetrics counts on-demand renders on a private registry
type renderMetrics struct {
	registry *prometheus.Registry
	renders  *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newRenderMetrics() *renderMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &renderMetrics{
		registry: reg,
		renders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_renders_total",
				Help: "Reports rendered on demand, by kind, format and status.",
			},
			[]string{"kind", "format", "status"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "report_render_duration_seconds",
				Help:    "Time to fetch and render one report.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}
}

func (m *renderMetrics) observe(kind, format, status string, d time.Duration) {
	m.renders.WithLabelValues(kind, format, status).Inc()
	m.latency.WithLabelValues(kind).Observe(d.Seconds())
}
