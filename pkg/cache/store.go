package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Defaults applied when PutOptions fields are zero.
const (
	DefaultTTLMinutes = 30
	DefaultMaxEntries = 100
)

// ErrNotSerializable indicates the value could not be JSON-serialized.
// Callers on the fetch path must treat this as best-effort: a failed cache
// write never fails the surrounding fetch.
var ErrNotSerializable = errors.New("value not serializable")

// PutOptions controls a single Put call.
type PutOptions struct {
	// TTLMinutes is the entry time-to-live in minutes (default 30).
	TTLMinutes int

	// MaxEntries is the namespace size bound enforced after the insert
	// (default 100).
	MaxEntries int

	// Compress runs the payload through the compression codec.
	Compress bool
}

// DefaultPutOptions returns the standard cache write options.
func DefaultPutOptions() PutOptions {
	return PutOptions{
		TTLMinutes: DefaultTTLMinutes,
		MaxEntries: DefaultMaxEntries,
	}
}

// namespace is one isolated cache partition. Each namespace has its own
// lock so eviction in one API family never blocks reads in another.
type namespace struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// Store is a namespaced in-memory key/value cache with TTL expiration and
// bounded-size LRU eviction. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace
}

// NewStore creates an empty cache store.
func NewStore() *Store {
	return &Store{
		namespaces: make(map[string]*namespace),
	}
}

// lookup returns the namespace, creating it when create is set.
func (s *Store) lookup(name string, create bool) *namespace {
	s.mu.RLock()
	ns := s.namespaces[name]
	s.mu.RUnlock()

	if ns != nil || !create {
		return ns
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ns = s.namespaces[name]; ns == nil {
		ns = &namespace{entries: make(map[string]*Entry)}
		s.namespaces[name] = ns
	}
	return ns
}

// Get retrieves the serialized value stored under key. A miss (absent or
// expired key) is not an error, only a signal to fetch fresh data.
// Expired entries are removed on read. Hits refresh LastAccessedAt and
// decompress transparently.
func (s *Store) Get(nsName, key string) ([]byte, bool) {
	ns := s.lookup(nsName, false)
	if ns == nil {
		CacheMisses.WithLabelValues(nsName).Inc()
		return nil, false
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()

	entry, ok := ns.entries[key]
	if !ok {
		CacheMisses.WithLabelValues(nsName).Inc()
		return nil, false
	}

	if entry.IsExpired() {
		delete(ns.entries, key)
		CacheEvictions.WithLabelValues(nsName, "expired").Inc()
		CacheMisses.WithLabelValues(nsName).Inc()
		s.publishGauges(nsName, ns)
		return nil, false
	}

	entry.LastAccessedAt = time.Now()

	payload := entry.Payload
	if entry.Compressed {
		raw, err := Decompress(payload)
		if err != nil {
			// Corrupted entry: drop it and report a miss.
			delete(ns.entries, key)
			CacheErrors.WithLabelValues("get").Inc()
			CacheMisses.WithLabelValues(nsName).Inc()
			s.publishGauges(nsName, ns)
			return nil, false
		}
		payload = raw
	}

	CacheHits.WithLabelValues(nsName).Inc()

	out := make([]byte, len(payload))
	copy(out, payload)
	return out, true
}

// GetJSON retrieves and decodes the value stored under key into out.
func (s *Store) GetJSON(nsName, key string, out any) bool {
	data, ok := s.Get(nsName, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return false
	}
	return true
}

// Put serializes value (optionally compressing it), stores it under key with
// the given TTL, then evicts while the namespace exceeds its size bound.
// A Put with an existing key replaces the entry atomically.
func (s *Store) Put(nsName, key string, value any, opts PutOptions) error {
	if opts.TTLMinutes <= 0 {
		opts.TTLMinutes = DefaultTTLMinutes
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}

	raw, err := json.Marshal(value)
	if err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("%w: %v", ErrNotSerializable, err)
	}

	payload := raw
	compressed := false
	if opts.Compress {
		packed, err := Compress(raw)
		if err != nil {
			// Store uncompressed rather than not at all.
			CacheErrors.WithLabelValues("compress").Inc()
		} else {
			payload = packed
			compressed = true
		}
	}

	now := time.Now()
	entry := &Entry{
		Key:            key,
		Payload:        payload,
		CreatedAt:      now,
		TTLMinutes:     opts.TTLMinutes,
		SizeBytes:      len(payload),
		Compressed:     compressed,
		LastAccessedAt: now,
	}

	ns := s.lookup(nsName, true)
	ns.mu.Lock()
	ns.entries[key] = entry
	evicted := ns.evict(opts.MaxEntries)
	s.publishGauges(nsName, ns)
	ns.mu.Unlock()

	for _, reason := range evicted {
		CacheEvictions.WithLabelValues(nsName, reason).Inc()
	}

	return nil
}

// evict removes entries until the namespace is at or under maxEntries,
// preferring already-expired entries, then the least recently used
// (oldest LastAccessedAt, ties broken by CreatedAt). Caller holds ns.mu.
// Returns the eviction reasons for metric accounting.
func (ns *namespace) evict(maxEntries int) []string {
	var reasons []string

	for len(ns.entries) > maxEntries {
		var victim *Entry
		victimExpired := false

		for _, e := range ns.entries {
			expired := e.IsExpired()
			if victim == nil {
				victim, victimExpired = e, expired
				continue
			}
			// Expired entries always lose to non-expired victims.
			if expired != victimExpired {
				if expired {
					victim, victimExpired = e, true
				}
				continue
			}
			if e.LastAccessedAt.Before(victim.LastAccessedAt) ||
				(e.LastAccessedAt.Equal(victim.LastAccessedAt) && e.CreatedAt.Before(victim.CreatedAt)) {
				victim = e
			}
		}

		delete(ns.entries, victim.Key)
		if victimExpired {
			reasons = append(reasons, "expired")
		} else {
			reasons = append(reasons, "lru")
		}
	}

	return reasons
}

// Invalidate removes a single entry.
func (s *Store) Invalidate(nsName, key string) {
	ns := s.lookup(nsName, false)
	if ns == nil {
		return
	}
	ns.mu.Lock()
	delete(ns.entries, key)
	s.publishGauges(nsName, ns)
	ns.mu.Unlock()
}

// Purge removes every entry in a namespace.
func (s *Store) Purge(nsName string) {
	ns := s.lookup(nsName, false)
	if ns == nil {
		return
	}
	ns.mu.Lock()
	ns.entries = make(map[string]*Entry)
	s.publishGauges(nsName, ns)
	ns.mu.Unlock()
}

// Count returns the number of entries in a namespace, expired included.
func (s *Store) Count(nsName string) int {
	ns := s.lookup(nsName, false)
	if ns == nil {
		return 0
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return len(ns.entries)
}

// Namespaces returns the known namespace names, sorted.
func (s *Store) Namespaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.namespaces))
	for name := range s.namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns metadata copies of every entry in a namespace for
// analytics. It never mutates LastAccessedAt. Unknown namespaces yield an
// empty slice.
func (s *Store) Snapshot(nsName string) []EntryInfo {
	ns := s.lookup(nsName, false)
	if ns == nil {
		return []EntryInfo{}
	}

	ns.mu.RLock()
	defer ns.mu.RUnlock()

	infos := make([]EntryInfo, 0, len(ns.entries))
	for _, e := range ns.entries {
		infos = append(infos, EntryInfo{
			Namespace:      nsName,
			Key:            e.Key,
			CreatedAt:      e.CreatedAt,
			TTLMinutes:     e.TTLMinutes,
			SizeBytes:      e.SizeBytes,
			Compressed:     e.Compressed,
			LastAccessedAt: e.LastAccessedAt,
		})
	}
	return infos
}

// SnapshotAll returns metadata for every namespace.
func (s *Store) SnapshotAll() []EntryInfo {
	var infos []EntryInfo
	for _, name := range s.Namespaces() {
		infos = append(infos, s.Snapshot(name)...)
	}
	return infos
}

// publishGauges refreshes the entry-count and size gauges. Caller holds ns.mu.
func (s *Store) publishGauges(nsName string, ns *namespace) {
	var size int64
	for _, e := range ns.entries {
		size += int64(e.SizeBytes)
	}
	CacheEntries.WithLabelValues(nsName).Set(float64(len(ns.entries)))
	CacheSize.WithLabelValues(nsName).Set(float64(size))
}
