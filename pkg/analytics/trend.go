package analytics

import (
	"time"

	"github.com/azurekid/blackcat-go/pkg/cache"
)

// Trend thresholds driving the textual prediction.
const (
	rapidGrowthPercent    = 75
	highExpirationPercent = 50
)

// Trends captures how the namespace has been moving lately.
type Trends struct {
	// GrowthRatePercent is the fraction of entries created in the last
	// 24 hours.
	GrowthRatePercent float64 `json:"growth_rate_percent" xml:"growth_rate_percent"`

	// PeakHour is the hour of day (0-23) when most entries were created,
	// -1 when there are no entries.
	PeakHour int `json:"peak_hour" xml:"peak_hour"`

	// TurnoverRatePercent mirrors the expiration rate.
	TurnoverRatePercent float64 `json:"turnover_rate_percent" xml:"turnover_rate_percent"`

	// Prediction is a threshold-driven summary of where the cache is
	// heading.
	Prediction string `json:"prediction" xml:"prediction"`
}

// buildTrends derives trend figures from an entry snapshot.
func buildTrends(entries []cache.EntryInfo, expirationRate float64, now time.Time) Trends {
	trends := Trends{
		PeakHour:            -1,
		TurnoverRatePercent: expirationRate,
	}
	if len(entries) == 0 {
		trends.Prediction = "no data"
		return trends
	}

	recent := 0
	hourCounts := make(map[int]int)
	dayAgo := now.Add(-24 * time.Hour)

	for _, entry := range entries {
		if entry.CreatedAt.After(dayAgo) {
			recent++
		}
		hourCounts[entry.CreatedAt.Hour()]++
	}

	trends.GrowthRatePercent = float64(recent) / float64(len(entries)) * 100

	peakCount := -1
	for hour := 0; hour < 24; hour++ {
		if count := hourCounts[hour]; count > peakCount {
			peakCount = count
			trends.PeakHour = hour
		}
	}

	switch {
	case trends.GrowthRatePercent > rapidGrowthPercent && expirationRate > highExpirationPercent:
		trends.Prediction = "rapid growth with high expiration - cache is churning"
	case trends.GrowthRatePercent > rapidGrowthPercent:
		trends.Prediction = "rapid growth - expect the size bound to be reached soon"
	case expirationRate > highExpirationPercent:
		trends.Prediction = "high expiration - most entries outlive their usefulness"
	default:
		trends.Prediction = "stable"
	}

	return trends
}
