// Package metrics collects and exposes Prometheus metrics for the API
// dispatch layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records request-level metrics at the dispatch boundary.
type Collector struct {
	requests       *prometheus.CounterVec
	requestLatency prometheus.Histogram
	authFailures   prometheus.Counter
	pinsIssued     prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slowpost_http_requests_total",
			Help: "API requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "slowpost_http_request_duration_seconds",
			Help:    "API request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slowpost_auth_failures_total",
			Help: "Rejected PIN or session verifications.",
		}),
		pinsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slowpost_pins_issued_total",
			Help: "One-time PINs issued.",
		}),
	}
	reg.MustRegister(c.requests, c.requestLatency, c.authFailures, c.pinsIssued)
	return c
}

// RecordRequest records a completed dispatch. route is the matched pattern
// (not the raw path) to keep cardinality bounded.
func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestLatency.Observe(duration.Seconds())
}

// RecordAuthFailure records a rejected PIN or session verification.
func (c *Collector) RecordAuthFailure() {
	if c == nil {
		return
	}
	c.authFailures.Inc()
}

// RecordPinIssued records an issued PIN.
func (c *Collector) RecordPinIssued() {
	if c == nil {
		return
	}
	c.pinsIssued.Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
