package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Key represents a unique identifier for a cached response.
type Key struct {
	// Base is the logical request identity, usually the endpoint path
	// (e.g., "/subscriptions/{id}/resources").
	Base string

	// Params are the normalized request parameters (query values, filter
	// expressions, API version).
	Params map[string]string

	// Batch marks keys for batch-mode requests, which cache separately
	// from their single-request equivalents.
	Batch bool
}

// String generates a deterministic cache key string.
// Parameters are sorted lexicographically so insertion order never matters.
// Format: bc:endpoint:param1=val1:param2=val2[:batch]
//
// Example:
//
//	bc:subscriptions/sub-1/resources:api-version=2023-07-01:filter=vaults
func (k Key) String() string {
	parts := []string{"bc"}

	base := strings.Trim(k.Base, "/")
	if base != "" {
		parts = append(parts, base)
	}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params[name]))
		}
	}

	if k.Batch {
		parts = append(parts, "batch")
	}

	return strings.Join(parts, ":")
}

// BuildKey derives a cache key string for the common single-request case.
func BuildKey(base string, params map[string]string) string {
	return Key{Base: base, Params: params}.String()
}
