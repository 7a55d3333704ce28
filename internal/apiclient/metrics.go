package apiclient

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// counter pairs an atomic value (for cheap snapshots) with a Prometheus
// counter (for scraping).
type counter struct {
	value int64
	prom  prometheus.Counter
}

func (c *counter) inc() {
	atomic.AddInt64(&c.value, 1)
	c.prom.Inc()
}

func (c *counter) load() int64 {
	return atomic.LoadInt64(&c.value)
}

// clientMetrics tracks request outcomes. Each client owns its own registry
// so multiple clients (and tests) never collide on registration.
type clientMetrics struct {
	registry *prometheus.Registry

	total       *counter
	success     *counter
	failed      *counter
	retried     *counter
	rateLimited *counter
}

func newClientMetrics() *clientMetrics {
	reg := prometheus.NewRegistry()

	mk := func(name, help string) *counter {
		p := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crm_client",
			Name:      name,
			Help:      help,
		})
		reg.MustRegister(p)
		return &counter{prom: p}
	}

	return &clientMetrics{
		registry:    reg,
		total:       mk("requests_total", "Requests entering the pipeline."),
		success:     mk("requests_success_total", "Requests resolved successfully."),
		failed:      mk("requests_failed_total", "Requests resolved with a terminal error."),
		retried:     mk("request_retries_total", "Retry attempts dispatched."),
		rateLimited: mk("requests_rate_limited_total", "Requests refused by the client-side limiter."),
	}
}

// Metrics returns a snapshot of the request counters.
func (c *Client) Metrics() map[string]int64 {
	return map[string]int64{
		"total_requests":        c.metrics.total.load(),
		"success_requests":      c.metrics.success.load(),
		"failed_requests":       c.metrics.failed.load(),
		"retried_requests":      c.metrics.retried.load(),
		"rate_limited_requests": c.metrics.rateLimited.load(),
	}
}

// MetricsRegistry exposes the client's Prometheus registry for scraping.
func (c *Client) MetricsRegistry() *prometheus.Registry {
	return c.metrics.registry
}
