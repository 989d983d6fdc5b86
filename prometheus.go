package ebitmap

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements MetricsCollector with Prometheus metrics.
type PrometheusCollector struct {
	opLatency   *prometheus.HistogramVec
	suspends    *prometheus.CounterVec
	liveHandles prometheus.Gauge
}

// NewPrometheusCollector creates the collector and registers its metrics
// with reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &PrometheusCollector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ebitmap_operation_latency_seconds",
			Help:    "Latency of bitmap operations across all their turns",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"op", "status"}),
		suspends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ebitmap_suspensions_total",
			Help: "Total number of times a bulk insert yielded its turn",
		}, []string{"op"}),
		liveHandles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ebitmap_live_handles",
			Help: "Number of sets currently reachable through handles",
		}),
	}
	reg.MustRegister(c.opLatency, c.suspends, c.liveHandles)
	return c
}

// RecordOperation implements MetricsCollector.
func (c *PrometheusCollector) RecordOperation(op string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.opLatency.WithLabelValues(op, status).Observe(d.Seconds())
}

// RecordSuspend implements MetricsCollector.
func (c *PrometheusCollector) RecordSuspend(op string) {
	c.suspends.WithLabelValues(op).Inc()
}

// RecordLiveHandles implements MetricsCollector.
func (c *PrometheusCollector) RecordLiveHandles(n int) {
	c.liveHandles.Set(float64(n))
}
