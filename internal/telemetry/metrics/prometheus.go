package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupPrometheus creates a registry with build info, go runtime and process
// collectors, plus the extra ones given (e.g. the pgx pool collector).
func SetupPrometheus(extraCollectors ...prometheus.Collector) *prometheus.Registry {
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promRegistry.MustRegister(extraCollectors...)
	return promRegistry
}

// Handler serves the registry for scraping. Scrape errors are counted by
// promhttp on the same registry.
func Handler(promRegistry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{
		Registry:          promRegistry,
		EnableOpenMetrics: true,
	})
}

// CacheStats is implemented by caches exported through NewCacheCollectors.
type CacheStats interface {
	HitCount() int64
	MissCount() int64
	EntryCount() int64
}

// NewCacheCollectors reads the cache stats on every scrape.
func NewCacheCollectors(namespace, subsystem, cacheName string, stats CacheStats) []prometheus.Collector {
	labels := prometheus.Labels{"cache": cacheName}
	return []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "cache_hits",
			Help:        "The total number of cache hits",
			ConstLabels: labels,
		}, func() float64 { return float64(stats.HitCount()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "cache_misses",
			Help:        "The total number of cache misses",
			ConstLabels: labels,
		}, func() float64 { return float64(stats.MissCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "cache_entries",
			Help:        "Current number of cached entries",
			ConstLabels: labels,
		}, func() float64 { return float64(stats.EntryCount()) }),
	}
}
