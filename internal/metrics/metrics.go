// Package metrics exposes Prometheus instrumentation for the harvesting engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// fetchesTotal counts fetch attempts by strategy and outcome.
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_fetches_total",
		Help: "The total number of fetch attempts, by strategy and outcome.",
	}, []string{"strategy", "outcome"})

	// retriesTotal counts retry attempts after transient fetch errors.
	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_fetch_retries_total",
		Help: "The total number of fetch retries after transient errors.",
	})

	// breakerTransitionsTotal counts circuit breaker state transitions.
	breakerTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_breaker_transitions_total",
		Help: "The total number of circuit breaker state transitions.",
	}, []string{"from", "to"})

	// throttleWaitSeconds observes time spent waiting on domain throttling.
	throttleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "harvest_throttle_wait_seconds",
		Help:    "Time spent waiting for per-domain spacing and the global token bucket.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	// robotsFetchesTotal counts robots.txt fetches (cache misses).
	robotsFetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_robots_fetches_total",
		Help: "The total number of robots.txt fetches issued on cache miss.",
	})
)

// ObserveFetch records one fetch attempt outcome.
func ObserveFetch(strategy string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	fetchesTotal.WithLabelValues(strategy, outcome).Inc()
}

// ObserveRetry records one retry attempt.
func ObserveRetry() {
	retriesTotal.Inc()
}

// ObserveBreakerTransition records a circuit breaker state change.
func ObserveBreakerTransition(from, to string) {
	breakerTransitionsTotal.WithLabelValues(from, to).Inc()
}

// ObserveThrottleWait records time a fetch spent blocked on throttling.
func ObserveThrottleWait(d time.Duration) {
	if d <= 0 {
		return
	}
	throttleWaitSeconds.Observe(d.Seconds())
}

// ObserveRobotsFetch records a robots.txt network fetch.
func ObserveRobotsFetch() {
	robotsFetchesTotal.Inc()
}
