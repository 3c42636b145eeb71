package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector provides Prometheus metrics collection for the client and the vault
type MetricsCollector struct {
	registry *prometheus.Registry

	// Client metrics
	fetchCounter    *prometheus.CounterVec
	fetchDuration   prometheus.Histogram
	weightsReceived prometheus.Gauge
	persistCounter  *prometheus.CounterVec

	// Vault server metrics
	requestDuration *prometheus.HistogramVec
	requestCounter  *prometheus.CounterVec
	weightsServed   prometheus.Counter
}

// NewMetricsCollector creates a collector for the specified service ("client" or "vault")
// on its own registry, so collectors never clash in tests.
func NewMetricsCollector(serviceName string) *MetricsCollector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	mc := &MetricsCollector{registry: reg}

	if serviceName == "client" {
		mc.fetchCounter = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vault_fetch_total",
				Help: "Weight package fetches by outcome",
			},
			[]string{"outcome"},
		)

		mc.fetchDuration = factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vault_fetch_duration_seconds",
				Help:    "Time from request to decoded weight package",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
		)

		mc.weightsReceived = factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vault_weights_received",
				Help: "Number of weights in the last fetched package",
			},
		)

		mc.persistCounter = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vault_persist_total",
				Help: "Weight persistence attempts by sink and outcome",
			},
			[]string{"sink", "outcome"},
		)
	}

	if serviceName == "vault" {
		mc.requestDuration = factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vault_server_request_duration_seconds",
				Help:    "Vault request latency",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"endpoint", "status_code"},
		)

		mc.requestCounter = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vault_server_requests_total",
				Help: "Total vault requests by status code",
			},
			[]string{"status_code"},
		)

		mc.weightsServed = factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vault_server_weights_served_total",
				Help: "Weights generated and served",
			},
		)
	}

	return mc
}

// Registry exposes the underlying registry
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

// Handler serves the registry in the Prometheus exposition format
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}

// WriteToTextfile dumps the registry for the node exporter textfile collector
func (mc *MetricsCollector) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, mc.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// RecordFetch records the outcome and duration of a fetch
func (mc *MetricsCollector) RecordFetch(outcome string, duration time.Duration) {
	if mc.fetchCounter != nil {
		mc.fetchCounter.WithLabelValues(outcome).Inc()
	}
	if mc.fetchDuration != nil {
		mc.fetchDuration.Observe(duration.Seconds())
	}
}

// SetWeightsReceived sets the size of the last fetched package
func (mc *MetricsCollector) SetWeightsReceived(count int) {
	if mc.weightsReceived != nil {
		mc.weightsReceived.Set(float64(count))
	}
}

// RecordPersist records a sink write
func (mc *MetricsCollector) RecordPersist(sink string, err error) {
	if mc.persistCounter == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	mc.persistCounter.WithLabelValues(sink, outcome).Inc()
}

// RecordRequest records a vault request
func (mc *MetricsCollector) RecordRequest(endpoint string, statusCode int, duration time.Duration) {
	code := strconv.Itoa(statusCode)
	if mc.requestDuration != nil {
		mc.requestDuration.WithLabelValues(endpoint, code).Observe(duration.Seconds())
	}
	if mc.requestCounter != nil {
		mc.requestCounter.WithLabelValues(code).Inc()
	}
}

// AddWeightsServed counts weights handed out by the vault
func (mc *MetricsCollector) AddWeightsServed(count int) {
	if mc.weightsServed != nil {
		mc.weightsServed.Add(float64(count))
	}
}
