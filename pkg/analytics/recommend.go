package analytics

import "fmt"

// Advisory thresholds. These produce text for operators, never actions.
const (
	lowHitRatePercent      = 60
	largeUncompressedBytes = 100 << 20 // 100MB
	highEntryCount         = 500
	highExpiredPercent     = 40
)

// recommend derives advisory strings from report aggregates.
func recommend(report Report) []string {
	if report.TotalEntries == 0 {
		return nil
	}

	var advice []string

	if report.HitRatePercent < lowHitRatePercent {
		advice = append(advice, fmt.Sprintf(
			"hit rate is %.0f%%; consider a longer TTL so entries stay useful between fetches",
			report.HitRatePercent))
	}

	if report.TotalSizeBytes > largeUncompressedBytes && report.CompressedEntries == 0 {
		advice = append(advice, fmt.Sprintf(
			"cache holds %s with no compression; enable compression on large payloads",
			formatBytes(report.TotalSizeBytes)))
	}

	if report.TotalEntries > highEntryCount {
		advice = append(advice, fmt.Sprintf(
			"%d entries cached; review the per-namespace size bound and eviction pressure",
			report.TotalEntries))
	}

	if report.ExpirationRatePercent > highExpiredPercent {
		advice = append(advice, fmt.Sprintf(
			"%.0f%% of entries are expired but still occupy the size bound; shorten the TTL or purge",
			report.ExpirationRatePercent))
	}

	return advice
}
