package cache

import (
	"time"
)

// Entry is one cached payload with its bookkeeping metadata.
// SizeBytes always reflects the stored (possibly compressed) payload.
type Entry struct {
	// Key is the cache key within the namespace
	Key string `json:"key"`

	// Payload is the serialized (and optionally compressed) value
	Payload []byte `json:"payload"`

	// CreatedAt is when the entry was stored
	CreatedAt time.Time `json:"created_at"`

	// TTLMinutes is the time-to-live in minutes from CreatedAt
	TTLMinutes int `json:"ttl_minutes"`

	// SizeBytes is the stored payload size
	SizeBytes int `json:"size_bytes"`

	// Compressed records whether Payload went through the compression codec
	Compressed bool `json:"compressed"`

	// LastAccessedAt is updated on every cache hit; eviction order key
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// ExpiresAt returns the instant the entry becomes stale.
func (e *Entry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(time.Duration(e.TTLMinutes) * time.Minute)
}

// IsExpired returns true if the entry has passed its TTL.
func (e *Entry) IsExpired() bool {
	return !time.Now().Before(e.ExpiresAt())
}

// RemainingTTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) RemainingTTL() time.Duration {
	ttl := time.Until(e.ExpiresAt())
	if ttl < 0 {
		return 0
	}
	return ttl
}

// EntryInfo is a read-only metadata view of an Entry, as returned by
// Store.Snapshot. It omits the payload and is safe to retain.
type EntryInfo struct {
	Namespace      string    `json:"namespace" xml:"namespace"`
	Key            string    `json:"key" xml:"key"`
	CreatedAt      time.Time `json:"created_at" xml:"created_at"`
	TTLMinutes     int       `json:"ttl_minutes" xml:"ttl_minutes"`
	SizeBytes      int       `json:"size_bytes" xml:"size_bytes"`
	Compressed     bool      `json:"compressed" xml:"compressed"`
	LastAccessedAt time.Time `json:"last_accessed_at" xml:"last_accessed_at"`
}

// ExpiresAt returns the instant the entry becomes stale.
func (i EntryInfo) ExpiresAt() time.Time {
	return i.CreatedAt.Add(time.Duration(i.TTLMinutes) * time.Minute)
}

// IsExpired returns true if the entry has passed its TTL.
func (i EntryInfo) IsExpired() bool {
	return !time.Now().Before(i.ExpiresAt())
}

// Age returns how long ago the entry was created.
func (i EntryInfo) Age() time.Duration {
	return time.Since(i.CreatedAt)
}

// RemainingTTL returns the time until expiration, 0 if already expired.
func (i EntryInfo) RemainingTTL() time.Duration {
	ttl := time.Until(i.ExpiresAt())
	if ttl < 0 {
		return 0
	}
	return ttl
}
