// Package analytics provides read-only reporting over the cache store:
// aggregate metrics, trend analysis, size/age histograms, entry filtering
// and sorting, advisory recommendations, and export to JSON, CSV, XML, or
// human-readable renderings.
//
// Analytics only ever reads Store.Snapshot, so reporting never perturbs
// entry access times or eviction order. It degrades gracefully: an
// uninitialized or empty namespace yields an empty report, never an error.
//
//	engine := analytics.NewEngine(store)
//	report := engine.Report("arm")
//
//	out, err := engine.CacheReport(analytics.ReportOptions{
//		Namespace: "arm",
//		Filters:   []analytics.Filter{analytics.Valid(), analytics.MinSize(1024)},
//		SortBy:    analytics.SortBySize,
//		Format:    analytics.FormatTable,
//	})
package analytics
