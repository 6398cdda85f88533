package analytics

import (
	"sort"

	"github.com/azurekid/blackcat-go/pkg/cache"
)

// SortField selects the entry ordering. Each field sorts with its most
// interesting entries first: biggest, oldest, or closest to expiry.
type SortField string

const (
	// SortByTimestamp orders newest created first.
	SortByTimestamp SortField = "timestamp"

	// SortBySize orders largest first.
	SortBySize SortField = "size"

	// SortByKey orders keys lexicographically.
	SortByKey SortField = "key"

	// SortByExpiration orders soonest to expire first.
	SortByExpiration SortField = "expiration"

	// SortByAge orders oldest first.
	SortByAge SortField = "age"

	// SortByRemainingTTL orders least remaining life first.
	SortByRemainingTTL SortField = "remaining_ttl"
)

// Sort orders entries in place by the given field.
func Sort(entries []cache.EntryInfo, field SortField) {
	less := lessFunc(entries, field)
	if less == nil {
		return
	}
	sort.SliceStable(entries, less)
}

func lessFunc(entries []cache.EntryInfo, field SortField) func(i, j int) bool {
	switch field {
	case SortByTimestamp:
		return func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) }
	case SortBySize:
		return func(i, j int) bool { return entries[i].SizeBytes > entries[j].SizeBytes }
	case SortByKey:
		return func(i, j int) bool { return entries[i].Key < entries[j].Key }
	case SortByExpiration:
		return func(i, j int) bool { return entries[i].ExpiresAt().Before(entries[j].ExpiresAt()) }
	case SortByAge:
		return func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) }
	case SortByRemainingTTL:
		return func(i, j int) bool { return entries[i].RemainingTTL() < entries[j].RemainingTTL() }
	default:
		return nil
	}
}
