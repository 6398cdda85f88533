// Package cache provides the namespaced in-memory cache backing the
// BlackCat request executor.
//
// Each namespace is an isolated partition (one per remote API family) with
// its own key space, size bound, and eviction state. Entries carry a TTL in
// minutes and are expired lazily: an expired entry is never returned by Get
// and is removed on read. When a Put pushes a namespace over its configured
// maximum entry count, least-recently-used entries are evicted until the
// namespace is back under the bound, preferring already-expired entries.
//
// # Basic Usage
//
//	store := cache.NewStore()
//
//	// Store a value for 30 minutes, bounded at 100 entries per namespace.
//	err := store.Put("arm", cache.BuildKey("/subscriptions", nil), result, cache.DefaultPutOptions())
//
//	// Read it back (transparently decompressed if stored compressed).
//	data, ok := store.Get("arm", cache.BuildKey("/subscriptions", nil))
//
//	// Typed read.
//	var subs []Subscription
//	ok = store.GetJSON("arm", key, &subs)
//
// # Compression
//
// Compression is opt-in per Put via PutOptions.Compress. The Compressed flag
// on the entry records which path was used so Get can decompress
// transparently. Round-trip is byte-identical.
//
// # Snapshots
//
// Snapshot returns metadata copies for analytics without touching
// LastAccessedAt, so reporting never perturbs eviction order.
//
// # Metrics
//
// The store exports Prometheus metrics:
//
//   - blackcat_cache_hits_total{namespace} - cache hits
//   - blackcat_cache_misses_total{namespace} - cache misses
//   - blackcat_cache_evictions_total{namespace, reason} - evictions ("expired", "lru")
//   - blackcat_cache_entries{namespace} - current entry count
//   - blackcat_cache_size_bytes{namespace} - current stored bytes
//   - blackcat_cache_errors_total{operation} - cache operation errors
package cache
