package analytics

import (
	"time"

	"github.com/azurekid/blackcat-go/pkg/cache"
)

// Filter is a predicate over entry metadata. Multiple filters compose with
// AND semantics.
type Filter func(cache.EntryInfo) bool

// Expired keeps only entries past their TTL.
func Expired() Filter {
	return func(e cache.EntryInfo) bool { return e.IsExpired() }
}

// Valid keeps only entries within their TTL.
func Valid() Filter {
	return func(e cache.EntryInfo) bool { return !e.IsExpired() }
}

// Compressed keeps only compressed entries.
func Compressed() Filter {
	return func(e cache.EntryInfo) bool { return e.Compressed }
}

// MinSize keeps entries whose stored payload is at least bytes.
func MinSize(bytes int) Filter {
	return func(e cache.EntryInfo) bool { return e.SizeBytes >= bytes }
}

// MaxAge keeps entries created within the last d.
func MaxAge(d time.Duration) Filter {
	return func(e cache.EntryInfo) bool { return e.Age() <= d }
}

// InNamespace keeps entries belonging to one namespace; useful when
// filtering an all-namespaces snapshot.
func InNamespace(name string) Filter {
	return func(e cache.EntryInfo) bool { return e.Namespace == name }
}

// Apply returns the entries matching every filter.
func Apply(entries []cache.EntryInfo, filters ...Filter) []cache.EntryInfo {
	if len(filters) == 0 {
		return entries
	}

	out := make([]cache.EntryInfo, 0, len(entries))
	for _, entry := range entries {
		keep := true
		for _, filter := range filters {
			if !filter(entry) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, entry)
		}
	}
	return out
}
