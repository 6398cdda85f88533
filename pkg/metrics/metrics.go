// Package metrics documents the Prometheus metrics exposed by the toolkit.
// The metrics themselves live in the packages that produce them (cache,
// client) and register through promauto; this package is the reference
// point and holds the registry handle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the Prometheus registerer all toolkit metrics attach to.
var Registry = prometheus.DefaultRegisterer

// Metric reference
//
// Cache (pkg/cache):
//   - blackcat_cache_hits_total{namespace} (Counter): cache hits
//   - blackcat_cache_misses_total{namespace} (Counter): cache misses
//   - blackcat_cache_evictions_total{namespace, reason} (Counter):
//     evictions; reason is "expired" or "lru"
//   - blackcat_cache_entries{namespace} (Gauge): live entry count
//   - blackcat_cache_size_bytes{namespace} (Gauge): stored payload bytes
//   - blackcat_cache_errors_total{operation} (Counter): cache operation
//     errors; operation is "put", "get", or "compress"
//
// Requests (pkg/client):
//   - blackcat_requests_total{endpoint, status} (Counter): requests by
//     endpoint and HTTP status
//   - blackcat_request_duration_seconds{endpoint} (Histogram): logical
//     fetch duration, pagination included
//   - blackcat_errors_total{class} (Counter): errors by class (throttled,
//     transient, auth, not_found, client)
//
// Retry (pkg/client):
//   - blackcat_retries_total{error_class} (Counter): retry attempts
//   - blackcat_retry_backoff_seconds{error_class} (Histogram): backoff
//     durations
//   - blackcat_retry_exhausted_total{error_class} (Counter): fetches that
//     ran out of attempts
//
// Throttle (pkg/client):
//   - blackcat_throttle_quota_remaining (Gauge): last observed quota header
//   - blackcat_throttle_waits_total (Counter): dispatches delayed by an
//     active Retry-After window
//
// Useful queries:
//
//	# Cache hit rate
//	sum(rate(blackcat_cache_hits_total[5m])) /
//	(sum(rate(blackcat_cache_hits_total[5m])) + sum(rate(blackcat_cache_misses_total[5m])))
//
//	# P95 fetch latency
//	histogram_quantile(0.95, rate(blackcat_request_duration_seconds_bucket[5m]))
//
//	# Throttling pressure
//	rate(blackcat_throttle_waits_total[5m])
//
//	# Eviction churn by namespace
//	sum by (namespace) (rate(blackcat_cache_evictions_total[5m]))
