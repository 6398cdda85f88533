package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by namespace
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blackcat_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"namespace"},
	)

	// CacheMisses tracks cache misses by namespace
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blackcat_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"namespace"},
	)

	// CacheEvictions tracks evictions by namespace and reason
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blackcat_cache_evictions_total",
			Help: "Total number of cache evictions",
		},
		[]string{"namespace", "reason"}, // "expired", "lru"
	)

	// CacheEntries tracks the current entry count by namespace
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "blackcat_cache_entries",
			Help: "Current number of cache entries",
		},
		[]string{"namespace"},
	)

	// CacheSize tracks stored bytes by namespace
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "blackcat_cache_size_bytes",
			Help: "Current size of cached payloads in bytes",
		},
		[]string{"namespace"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blackcat_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "put", "get", "compress"
	)
)
