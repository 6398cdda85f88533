// Command armproxy is a caching proxy in front of a resource-management API.
// GETs under /api/ are routed through the caching request executor, so
// repeated assessment queries hit the local cache instead of the upstream.
// It also exposes /health, Prometheus /metrics, and /cache/report.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/azurekid/blackcat-go/pkg/analytics"
	"github.com/azurekid/blackcat-go/pkg/client"
	"github.com/azurekid/blackcat-go/pkg/logging"
)

func main() {
	// Configuration from environment
	port := getEnv("PORT", "8080")
	upstream := getEnv("UPSTREAM_URL", "https://management.azure.com")
	userAgent := getEnv("USER_AGENT", "blackcat-armproxy/1.0")
	logLevel := getEnv("LOG_LEVEL", "info")
	ttlMinutes := getEnvInt("CACHE_TTL_MINUTES", 30)
	token := os.Getenv("ACCESS_TOKEN")

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(logLevel),
		Pretty: os.Getenv("LOG_PRETTY") == "true",
		Output: os.Stderr,
	})

	if token == "" {
		logger.Fatal().Msg("ACCESS_TOKEN is required")
	}

	cfg := client.DefaultConfig(upstream, client.StaticToken(token))
	cfg.UserAgent = userAgent

	apiClient, err := client.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create API client")
	}

	engine := analytics.NewEngine(apiClient.Store())

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/cache/report", reportHandler(engine, logger))
	mux.HandleFunc("/api/", proxyHandler(apiClient, ttlMinutes, logger))

	addr := ":" + port
	logger.Info().
		Str("addr", addr).
		Str("upstream", upstream).
		Str("user_agent", userAgent).
		Msg("Starting armproxy")

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// reportHandler serves the cache report. Query parameters: format
// (summary/json/csv/xml/table/list/object) and namespace.
func reportHandler(engine *analytics.Engine, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format, err := analytics.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		out, err := engine.CacheReport(analytics.ReportOptions{
			Namespace: r.URL.Query().Get("namespace"),
			Format:    format,
		})
		if err != nil {
			logger.Error().Err(err).Msg("Cache report failed")
			http.Error(w, "report generation failed", http.StatusInternalServerError)
			return
		}

		switch format {
		case analytics.FormatJSON:
			w.Header().Set("Content-Type", "application/json")
		case analytics.FormatXML:
			w.Header().Set("Content-Type", "application/xml")
		case analytics.FormatCSV:
			w.Header().Set("Content-Type", "text/csv")
		default:
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		}
		fmt.Fprint(w, out)
	}
}

// proxyHandler routes GETs through the caching executor.
// /api/subscriptions?api-version=… maps to /subscriptions on the upstream.
func proxyHandler(apiClient *client.Client, ttlMinutes int, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "only GET is proxied", http.StatusMethodNotAllowed)
			return
		}

		endpoint := strings.TrimPrefix(r.URL.Path, "/api")
		if endpoint == "" || endpoint == "/" {
			http.Error(w, "missing endpoint path", http.StatusBadRequest)
			return
		}

		query := make(map[string]string)
		for name := range r.URL.Query() {
			if name == "paginated" {
				continue
			}
			query[name] = r.URL.Query().Get(name)
		}

		desc := client.Descriptor{
			Endpoint:  endpoint,
			Query:     query,
			Paginated: r.URL.Query().Get("paginated") == "true",
		}

		opts := client.DefaultCacheOptions()
		opts.ExpirationMinutes = ttlMinutes

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
		defer cancel()

		data, err := apiClient.Fetch(ctx, desc, opts)
		if err != nil {
			logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Proxy fetch failed")
			http.Error(w, fmt.Sprintf("upstream request failed: %v", err), http.StatusBadGateway)
			return
		}
		if data == nil {
			http.Error(w, "resource not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			logger.Warn().Err(err).Msg("Failed to write response")
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
