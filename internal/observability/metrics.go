// Package observability registers the gateway's Prometheus collectors and
// exposes small recording helpers so the core packages do not carry
// collector plumbing.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type gatewayMetrics struct {
	oracleCacheHits   prometheus.Counter
	oracleCacheMisses prometheus.Counter
	oracleFetches     *prometheus.CounterVec
	broadcastSeconds  prometheus.Histogram
	submitOutcomes    *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	registry    *gatewayMetrics
)

func get() *gatewayMetrics {
	metricsOnce.Do(func() {
		registry = &gatewayMetrics{
			oracleCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "bolt",
				Subsystem: "oracle",
				Name:      "cache_hits_total",
				Help:      "Price requests served from the in-process cache.",
			}),
			oracleCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "bolt",
				Subsystem: "oracle",
				Name:      "cache_misses_total",
				Help:      "Price requests that started an upstream fetch.",
			}),
			oracleFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bolt",
				Subsystem: "oracle",
				Name:      "fetches_total",
				Help:      "Upstream price fetches by result (ok, error, malformed).",
			}, []string{"result"}),
			broadcastSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "bolt",
				Subsystem: "broadcast",
				Name:      "duration_seconds",
				Help:      "Latency of transaction broadcasts to the Bolt node.",
				Buckets:   prometheus.DefBuckets,
			}),
			submitOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bolt",
				Subsystem: "settlement",
				Name:      "submit_outcomes_total",
				Help:      "Payment submission sagas by terminal outcome.",
			}, []string{"outcome"}),
		}
		prometheus.MustRegister(
			registry.oracleCacheHits,
			registry.oracleCacheMisses,
			registry.oracleFetches,
			registry.broadcastSeconds,
			registry.submitOutcomes,
		)
	})
	return registry
}

func OracleCacheHit() { get().oracleCacheHits.Inc() }

func OracleCacheMiss() { get().oracleCacheMisses.Inc() }

func OracleFetch(result string) { get().oracleFetches.WithLabelValues(result).Inc() }

func ObserveBroadcast(d time.Duration) { get().broadcastSeconds.Observe(d.Seconds()) }

func SubmitOutcome(outcome string) { get().submitOutcomes.WithLabelValues(outcome).Inc() }
