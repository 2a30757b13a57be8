// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records HTTP traffic and auth outcomes.
type Collector struct {
	requests        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	authAttempts    *prometheus.CounterVec
	lastLoginFailed prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "messagely_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "messagely_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "messagely_auth_attempts_total",
			Help: "Register and login attempts by outcome.",
		}, []string{"action", "outcome"}),
		lastLoginFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messagely_last_login_update_failures_total",
			Help: "Background last-login updates that failed.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.latency,
		c.authAttempts,
		c.lastLoginFailed,
	)

	return c
}

// RecordHTTPRequest records one served request. route is the matched pattern,
// not the raw path.
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, d time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) RecordAuthAttempt(action, outcome string) {
	c.authAttempts.WithLabelValues(action, outcome).Inc()
}

func (c *Collector) RecordLastLoginFailure() {
	c.lastLoginFailed.Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
