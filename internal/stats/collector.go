// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used throughout the gateway.
const (
	// Fetch-path metrics.
	MetricRequests        = "offgate_requests_total"
	MetricCacheHits       = "offgate_cache_hits_total"
	MetricCacheMisses     = "offgate_cache_misses_total"
	MetricNetworkFetches  = "offgate_network_fetches_total"
	MetricNetworkFailures = "offgate_network_failures_total"
	MetricFallbacks       = "offgate_fallbacks_total"
	MetricFetchSeconds    = "offgate_fetch_duration_seconds"

	// Lifecycle and control metrics.
	MetricPrecached        = "offgate_precached_resources_total"
	MetricPreloaded        = "offgate_preloaded_resources_total"
	MetricPartitionEntries = "offgate_partition_entries"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
