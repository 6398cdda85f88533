package analytics

import (
	"fmt"
	"time"

	"github.com/azurekid/blackcat-go/pkg/cache"
)

// DefaultBucketCount is the histogram resolution.
const DefaultBucketCount = 8

// Bucket is one histogram slot.
type Bucket struct {
	Label   string  `json:"label" xml:"label"`
	Count   int     `json:"count" xml:"count"`
	Percent float64 `json:"percent" xml:"percent"`
}

// histogram buckets values into buckets slots spanning min to max.
// All-equal values collapse into a single bucket.
func histogram(values []float64, buckets int, label func(lo, hi float64) string) []Bucket {
	if len(values) == 0 {
		return nil
	}
	if buckets <= 0 {
		buckets = DefaultBucketCount
	}

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	if min == max {
		return []Bucket{{
			Label:   label(min, max),
			Count:   len(values),
			Percent: 100,
		}}
	}

	width := (max - min) / float64(buckets)
	result := make([]Bucket, buckets)
	for i := range result {
		lo := min + float64(i)*width
		result[i].Label = label(lo, lo+width)
	}

	for _, v := range values {
		idx := int((v - min) / width)
		if idx >= buckets {
			idx = buckets - 1
		}
		result[idx].Count++
	}

	total := float64(len(values))
	for i := range result {
		result[i].Percent = float64(result[i].Count) / total * 100
	}

	return result
}

// sizeHistogram buckets entries by stored payload size.
func sizeHistogram(entries []cache.EntryInfo, buckets int) []Bucket {
	values := make([]float64, len(entries))
	for i, entry := range entries {
		values[i] = float64(entry.SizeBytes)
	}
	return histogram(values, buckets, func(lo, hi float64) string {
		return fmt.Sprintf("%s - %s", formatBytes(int64(lo)), formatBytes(int64(hi)))
	})
}

// ageHistogram buckets entries by age.
func ageHistogram(entries []cache.EntryInfo, buckets int, now time.Time) []Bucket {
	values := make([]float64, len(entries))
	for i, entry := range entries {
		values[i] = now.Sub(entry.CreatedAt).Seconds()
	}
	return histogram(values, buckets, func(lo, hi float64) string {
		return fmt.Sprintf("%s - %s",
			(time.Duration(lo)*time.Second).Round(time.Second),
			(time.Duration(hi)*time.Second).Round(time.Second))
	})
}

// formatBytes renders a byte count for humans.
func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1fGB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
