// Package metrics exposes Prometheus metrics for the gateway: request
// counts and latency per format and channel, token throughput, and
// accumulated cost.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the registry and all gateway metrics.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
	costTotal       *prometheus.CounterVec
	streamsActive   prometheus.Gauge
	auditDropped    prometheus.Counter
}

// NewCollector creates and registers the gateway metrics. A nil registry
// gets a fresh one.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "octane",
				Subsystem: "relay",
				Name:      "requests_total",
				Help:      "Total proxied requests by client format, channel, and status code",
			},
			[]string{"format", "channel", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "octane",
				Subsystem: "relay",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				// LLM calls routinely run for tens of seconds.
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"format", "channel"},
		),
		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "octane",
				Subsystem: "relay",
				Name:      "tokens_total",
				Help:      "Total tokens processed by channel, model, and direction",
			},
			[]string{"channel", "model", "direction"},
		),
		costTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "octane",
				Subsystem: "relay",
				Name:      "cost_total",
				Help:      "Accumulated cost in currency units by channel and model",
			},
			[]string{"channel", "model"},
		),
		streamsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "octane",
				Subsystem: "relay",
				Name:      "streams_active",
				Help:      "Streaming responses currently in flight",
			},
		),
		auditDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "octane",
				Subsystem: "relay",
				Name:      "audit_records_dropped_total",
				Help:      "Audit records dropped because the write queue was full",
			},
		),
	}

	registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.tokensTotal,
		c.costTotal,
		c.streamsActive,
		c.auditDropped,
	)
	return c
}

// RecordRequest counts one finished request and its latency.
func (c *Collector) RecordRequest(format, channel string, status int, duration time.Duration) {
	c.requestsTotal.WithLabelValues(format, channel, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(format, channel).Observe(duration.Seconds())
}

// RecordUsage counts the tokens and cost of one billed call.
func (c *Collector) RecordUsage(channel, model string, inputTokens, outputTokens int, cost float64) {
	c.tokensTotal.WithLabelValues(channel, model, "input").Add(float64(inputTokens))
	c.tokensTotal.WithLabelValues(channel, model, "output").Add(float64(outputTokens))
	if cost > 0 {
		c.costTotal.WithLabelValues(channel, model).Add(cost)
	}
}

// StreamStarted and StreamEnded track in-flight streams.
func (c *Collector) StreamStarted() { c.streamsActive.Inc() }

// StreamEnded decrements the in-flight stream gauge.
func (c *Collector) StreamEnded() { c.streamsActive.Dec() }

// AuditRecordDropped counts one lost audit record.
func (c *Collector) AuditRecordDropped() { c.auditDropped.Inc() }

// Handler returns the /metrics endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
