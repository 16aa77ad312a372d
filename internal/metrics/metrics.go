// Package metrics adapts the teacher's Prometheus shape (metrics/metrics.go)
// to the gateway's domain: MTI, transaction type, and response code instead
// of region.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus metric the gateway publishes.
type Metrics struct {
	RequestCount    *prometheus.CounterVec
	ResponseLatency *prometheus.HistogramVec
	EsbErrorCount   *prometheus.CounterVec
	ConnectionGauge prometheus.Gauge
	WorkerPoolBusy  prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atmgw_requests_total",
				Help: "The total number of processed ISO-8583 requests",
			},
			[]string{"mti", "transaction_type", "response_code"},
		),

		ResponseLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "atmgw_response_latency_seconds",
				Help:    "Response latency distribution in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
			},
			[]string{"mti", "transaction_type"},
		),

		EsbErrorCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atmgw_esb_errors_total",
				Help: "The total number of ESB call failures, by transaction type",
			},
			[]string{"transaction_type"},
		),

		ConnectionGauge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "atmgw_connections_open",
				Help: "Number of currently open ATM switch connections",
			},
		),

		WorkerPoolBusy: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "atmgw_worker_pool_busy",
				Help: "Number of worker pool slots currently handling a connection",
			},
		),
	}
}
