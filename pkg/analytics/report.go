package analytics

import (
	"time"

	"github.com/azurekid/blackcat-go/pkg/cache"
)

// Engine builds reports from cache snapshots.
type Engine struct {
	store *cache.Store
}

// NewEngine creates an analytics engine over a cache store.
func NewEngine(store *cache.Store) *Engine {
	return &Engine{store: store}
}

// Report is the aggregate view of one namespace (or all of them).
type Report struct {
	Namespace   string    `json:"namespace" xml:"namespace"`
	GeneratedAt time.Time `json:"generated_at" xml:"generated_at"`

	TotalEntries      int `json:"total_entries" xml:"total_entries"`
	ValidEntries      int `json:"valid_entries" xml:"valid_entries"`
	ExpiredEntries    int `json:"expired_entries" xml:"expired_entries"`
	CompressedEntries int `json:"compressed_entries" xml:"compressed_entries"`

	TotalSizeBytes   int64   `json:"total_size_bytes" xml:"total_size_bytes"`
	AverageSizeBytes float64 `json:"average_size_bytes" xml:"average_size_bytes"`

	OldestEntry time.Time `json:"oldest_entry" xml:"oldest_entry"`
	NewestEntry time.Time `json:"newest_entry" xml:"newest_entry"`

	// HitRatePercent estimates usefulness as valid/total.
	HitRatePercent        float64 `json:"hit_rate_percent" xml:"hit_rate_percent"`
	ExpirationRatePercent float64 `json:"expiration_rate_percent" xml:"expiration_rate_percent"`
	CompressionPercent    float64 `json:"compression_percent" xml:"compression_percent"`

	Trends        Trends   `json:"trends" xml:"trends"`
	SizeHistogram []Bucket `json:"size_histogram" xml:"size_histogram>bucket"`
	AgeHistogram  []Bucket `json:"age_histogram" xml:"age_histogram>bucket"`

	Recommendations []string `json:"recommendations" xml:"recommendations>recommendation"`
}

// AllNamespaces selects every namespace in Report and CacheReport calls.
const AllNamespaces = "all"

// snapshot resolves a namespace selector to entry metadata.
func (e *Engine) snapshot(namespace string) []cache.EntryInfo {
	if namespace == "" || namespace == AllNamespaces {
		return e.store.SnapshotAll()
	}
	return e.store.Snapshot(namespace)
}

// Report builds the aggregate report for one namespace, or for every
// namespace when given "" or "all". An empty namespace yields a zero
// report; analytics never fails on missing cache state.
func (e *Engine) Report(namespace string) Report {
	entries := e.snapshot(namespace)
	report := buildReport(namespace, entries, time.Now())
	report.Recommendations = recommend(report)
	return report
}

// buildReport computes all aggregates from an entry snapshot.
func buildReport(namespace string, entries []cache.EntryInfo, now time.Time) Report {
	if namespace == "" {
		namespace = AllNamespaces
	}

	report := Report{
		Namespace:   namespace,
		GeneratedAt: now,
	}
	if len(entries) == 0 {
		return report
	}

	report.TotalEntries = len(entries)
	report.OldestEntry = entries[0].CreatedAt
	report.NewestEntry = entries[0].CreatedAt

	for _, entry := range entries {
		if entry.IsExpired() {
			report.ExpiredEntries++
		} else {
			report.ValidEntries++
		}
		if entry.Compressed {
			report.CompressedEntries++
		}
		report.TotalSizeBytes += int64(entry.SizeBytes)

		if entry.CreatedAt.Before(report.OldestEntry) {
			report.OldestEntry = entry.CreatedAt
		}
		if entry.CreatedAt.After(report.NewestEntry) {
			report.NewestEntry = entry.CreatedAt
		}
	}

	total := float64(report.TotalEntries)
	report.AverageSizeBytes = float64(report.TotalSizeBytes) / total
	report.HitRatePercent = float64(report.ValidEntries) / total * 100
	report.ExpirationRatePercent = float64(report.ExpiredEntries) / total * 100
	report.CompressionPercent = float64(report.CompressedEntries) / total * 100

	report.Trends = buildTrends(entries, report.ExpirationRatePercent, now)
	report.SizeHistogram = sizeHistogram(entries, DefaultBucketCount)
	report.AgeHistogram = ageHistogram(entries, DefaultBucketCount, now)

	return report
}

// Entries returns the filtered, sorted entry list for a namespace selector.
func (e *Engine) Entries(namespace string, filters []Filter, sortBy SortField) []cache.EntryInfo {
	entries := Apply(e.snapshot(namespace), filters...)
	Sort(entries, sortBy)
	return entries
}
