// Package metrics exposes load test activity as Prometheus collectors.
//
// A nil *Collector is valid and records nothing, so callers that do not
// serve /metrics can skip it entirely.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wavebench"

type Collector struct {
	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration prometheus.Histogram
	inflight prometheus.Gauge
	waves    prometheus.Counter
	runs     *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)

	return &Collector{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests dispatched by load tests, by outcome.",
		}, []string{"outcome"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_failures_total",
			Help:      "Failed requests by failure type.",
		}, []string{"type"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of successful load test requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inflight_requests",
			Help:      "Requests currently awaiting a response.",
		}),
		waves: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waves_total",
			Help:      "Request waves started.",
		}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Load test invocations by result.",
		}, []string{"result"}),
	}
}

// ObserveRequest counts one classified request. failureType is ignored
// for successful requests.
func (c *Collector) ObserveRequest(success bool, failureType string, elapsed time.Duration) {
	if c == nil {
		return
	}
	if success {
		c.requests.WithLabelValues("success").Inc()
		c.duration.Observe(elapsed.Seconds())
		return
	}
	c.requests.WithLabelValues("failure").Inc()
	c.failures.WithLabelValues(failureType).Inc()
}

func (c *Collector) InflightAdd(delta float64) {
	if c == nil {
		return
	}
	c.inflight.Add(delta)
}

func (c *Collector) WaveStarted() {
	if c == nil {
		return
	}
	c.waves.Inc()
}

// RunFinished counts a finished invocation. result is one of
// "completed", "canceled" or "invalid".
func (c *Collector) RunFinished(result string) {
	if c == nil {
		return
	}
	c.runs.WithLabelValues(result).Inc()
}
