package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts pages served from Redis.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "steam_cache_hits_total",
			Help: "Total number of review page cache hits",
		},
	)

	// CacheMisses counts lookups that found nothing usable.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "steam_cache_misses_total",
			Help: "Total number of review page cache misses",
		},
	)

	// CacheStoredBytes tracks bytes written to the cache.
	CacheStoredBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "steam_cache_stored_bytes",
			Help: "Bytes of review page data written to the cache",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steam_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
