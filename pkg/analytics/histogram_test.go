package analytics

import (
	"testing"
	"time"

	"github.com/azurekid/blackcat-go/pkg/cache"
)

func TestHistogramEmpty(t *testing.T) {
	if got := sizeHistogram(nil, DefaultBucketCount); got != nil {
		t.Errorf("sizeHistogram(nil) = %v, want nil", got)
	}
}

func TestHistogramUniformValuesCollapse(t *testing.T) {
	entries := []cache.EntryInfo{
		entry(t, func(e *cache.EntryInfo) { e.SizeBytes = 512 }),
		entry(t, func(e *cache.EntryInfo) { e.SizeBytes = 512 }),
		entry(t, func(e *cache.EntryInfo) { e.SizeBytes = 512 }),
	}

	buckets := sizeHistogram(entries, DefaultBucketCount)
	if len(buckets) != 1 {
		t.Fatalf("got %d buckets, want 1", len(buckets))
	}
	if buckets[0].Count != 3 {
		t.Errorf("Count = %d, want 3", buckets[0].Count)
	}
	if buckets[0].Percent != 100 {
		t.Errorf("Percent = %v, want 100", buckets[0].Percent)
	}
}

func TestHistogramDistribution(t *testing.T) {
	var entries []cache.EntryInfo
	for _, size := range []int{0, 100, 200, 300, 400, 500, 600, 700, 800} {
		s := size
		entries = append(entries, entry(t, func(e *cache.EntryInfo) { e.SizeBytes = s }))
	}

	buckets := sizeHistogram(entries, 4)
	if len(buckets) != 4 {
		t.Fatalf("got %d buckets, want 4", len(buckets))
	}

	total := 0
	percent := 0.0
	for _, b := range buckets {
		total += b.Count
		percent += b.Percent
	}
	if total != len(entries) {
		t.Errorf("bucket counts sum to %d, want %d", total, len(entries))
	}
	if percent < 99.9 || percent > 100.1 {
		t.Errorf("bucket percents sum to %v, want 100", percent)
	}

	// The max value lands in the last bucket, not one past it.
	if buckets[3].Count == 0 {
		t.Error("last bucket is empty, max value was dropped")
	}
}

func TestAgeHistogram(t *testing.T) {
	now := time.Now()
	entries := []cache.EntryInfo{
		entry(t, func(e *cache.EntryInfo) { e.CreatedAt = now.Add(-1 * time.Minute) }),
		entry(t, func(e *cache.EntryInfo) { e.CreatedAt = now.Add(-30 * time.Minute) }),
		entry(t, func(e *cache.EntryInfo) { e.CreatedAt = now.Add(-60 * time.Minute) }),
	}

	buckets := ageHistogram(entries, 3, now)
	if len(buckets) != 3 {
		t.Fatalf("got %d buckets, want 3", len(buckets))
	}
	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	if total != 3 {
		t.Errorf("bucket counts sum to %d, want 3", total)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0B"},
		{512, "512B"},
		{1024, "1.0KB"},
		{1536, "1.5KB"},
		{2 << 20, "2.0MB"},
		{3 << 30, "3.0GB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
