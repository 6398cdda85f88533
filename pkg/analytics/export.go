package analytics

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/azurekid/blackcat-go/pkg/cache"
)

// Format selects the report rendering.
type Format string

const (
	// FormatObject renders the aggregate report as a Go value dump.
	FormatObject Format = "object"

	// FormatTable renders the entry list as an aligned text table.
	FormatTable Format = "table"

	// FormatList renders the entry list one block per entry.
	FormatList Format = "list"

	// FormatJSON renders the aggregate report plus entry list as JSON.
	FormatJSON Format = "json"

	// FormatCSV renders the entry list as CSV.
	FormatCSV Format = "csv"

	// FormatXML renders the aggregate report plus entry list as XML.
	FormatXML Format = "xml"

	// FormatSummary renders a short human-readable digest.
	FormatSummary Format = "summary"
)

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatObject, FormatTable, FormatList, FormatJSON, FormatCSV, FormatXML, FormatSummary:
		return Format(strings.ToLower(s)), nil
	case "":
		return FormatSummary, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// ReportOptions selects what CacheReport renders.
type ReportOptions struct {
	// Namespace selects one namespace, or every namespace when empty
	// or "all".
	Namespace string

	// Filters narrow the entry list (AND semantics).
	Filters []Filter

	// SortBy orders the entry list.
	SortBy SortField

	// Format selects the rendering (default Summary).
	Format Format

	// ExportPath, when set, is a directory the rendered report is also
	// written to as a timestamped file.
	ExportPath string
}

// document is the machine-readable export shape: aggregates plus entries.
type document struct {
	XMLName xml.Name          `json:"-" xml:"cache_report"`
	Report  Report            `json:"report" xml:"report"`
	Entries []cache.EntryInfo `json:"entries" xml:"entries>entry"`
}

// CacheReport builds, renders, and optionally persists a cache report.
// Returns the rendered report text.
func (e *Engine) CacheReport(opts ReportOptions) (string, error) {
	if opts.Format == "" {
		opts.Format = FormatSummary
	}

	report := e.Report(opts.Namespace)
	entries := e.Entries(opts.Namespace, opts.Filters, opts.SortBy)

	rendered, err := render(report, entries, opts.Format)
	if err != nil {
		return "", err
	}

	if opts.ExportPath != "" {
		if _, err := writeTimestamped(opts.ExportPath, report.Namespace, rendered, opts.Format); err != nil {
			return "", err
		}
	}

	return rendered, nil
}

// render produces the report text for one format.
func render(report Report, entries []cache.EntryInfo, format Format) (string, error) {
	switch format {
	case FormatObject:
		return fmt.Sprintf("%+v\n", report), nil

	case FormatJSON:
		out, err := json.MarshalIndent(document{Report: report, Entries: entries}, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode report as JSON: %w", err)
		}
		return string(out) + "\n", nil

	case FormatXML:
		out, err := xml.MarshalIndent(document{Report: report, Entries: entries}, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode report as XML: %w", err)
		}
		return xml.Header + string(out) + "\n", nil

	case FormatCSV:
		return renderCSV(entries)

	case FormatTable:
		return renderTable(entries), nil

	case FormatList:
		return renderList(entries), nil

	case FormatSummary:
		return renderSummary(report), nil

	default:
		return "", fmt.Errorf("unknown report format %q", format)
	}
}

func renderCSV(entries []cache.EntryInfo) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := []string{"namespace", "key", "created_at", "ttl_minutes", "size_bytes", "compressed", "last_accessed_at", "expired"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write CSV header: %w", err)
	}

	for _, entry := range entries {
		record := []string{
			entry.Namespace,
			entry.Key,
			entry.CreatedAt.Format(time.RFC3339),
			strconv.Itoa(entry.TTLMinutes),
			strconv.Itoa(entry.SizeBytes),
			strconv.FormatBool(entry.Compressed),
			entry.LastAccessedAt.Format(time.RFC3339),
			strconv.FormatBool(entry.IsExpired()),
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush CSV: %w", err)
	}
	return sb.String(), nil
}

func renderTable(entries []cache.EntryInfo) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "NAMESPACE\tKEY\tSIZE\tAGE\tTTL LEFT\tCOMPRESSED")
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%v\n",
			entry.Namespace,
			entry.Key,
			formatBytes(int64(entry.SizeBytes)),
			entry.Age().Round(time.Second),
			entry.RemainingTTL().Round(time.Second),
			entry.Compressed,
		)
	}
	w.Flush()
	return sb.String()
}

func renderList(entries []cache.EntryInfo) string {
	var sb strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&sb, "%s/%s\n", entry.Namespace, entry.Key)
		fmt.Fprintf(&sb, "  created:    %s\n", entry.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(&sb, "  size:       %s\n", formatBytes(int64(entry.SizeBytes)))
		fmt.Fprintf(&sb, "  ttl left:   %s\n", entry.RemainingTTL().Round(time.Second))
		fmt.Fprintf(&sb, "  compressed: %v\n", entry.Compressed)
	}
	return sb.String()
}

func renderSummary(report Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Cache report for %s (%s)\n", report.Namespace, report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "  entries:     %d total, %d valid, %d expired, %d compressed\n",
		report.TotalEntries, report.ValidEntries, report.ExpiredEntries, report.CompressedEntries)
	fmt.Fprintf(&sb, "  size:        %s total, %s average\n",
		formatBytes(report.TotalSizeBytes), formatBytes(int64(report.AverageSizeBytes)))
	fmt.Fprintf(&sb, "  hit rate:    %.1f%%\n", report.HitRatePercent)
	fmt.Fprintf(&sb, "  expiration:  %.1f%%\n", report.ExpirationRatePercent)
	fmt.Fprintf(&sb, "  compression: %.1f%%\n", report.CompressionPercent)
	fmt.Fprintf(&sb, "  trend:       %s\n", report.Trends.Prediction)
	for _, advice := range report.Recommendations {
		fmt.Fprintf(&sb, "  advice:      %s\n", advice)
	}
	return sb.String()
}

// fileExtension maps a format to its on-disk extension.
func fileExtension(format Format) string {
	switch format {
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	case FormatXML:
		return "xml"
	default:
		return "txt"
	}
}

// writeTimestamped persists rendered report text under dir with a
// timestamped name, creating dir as needed. Returns the file path.
func writeTimestamped(dir, namespace, rendered string, format Format) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	name := fmt.Sprintf("cache-report-%s-%s.%s",
		namespace, time.Now().Format("20060102-150405"), fileExtension(format))
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write report file: %w", err)
	}
	return path, nil
}
