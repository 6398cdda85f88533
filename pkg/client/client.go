// Package client provides the resilient HTTP request executor used to
// enumerate cloud inventory and directory-graph APIs, with write-through
// caching, throttling-aware retry, cursor pagination, and request batching.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/azurekid/blackcat-go/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Prometheus metrics for request operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blackcat_requests_total",
		Help: "Total requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blackcat_request_duration_seconds",
		Help:    "Logical fetch duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blackcat_errors_total",
		Help: "Total request errors by class",
	}, []string{"class"})
)

// TokenProvider supplies bearer tokens. Token acquisition itself lives
// outside this package.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider returning a fixed token, useful for tests
// and short-lived assessment sessions.
type StaticToken string

// Token implements TokenProvider.
func (s StaticToken) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

// Descriptor identifies one logical fetch.
type Descriptor struct {
	// Endpoint is the path relative to the client base URL.
	Endpoint string

	// Method defaults to GET.
	Method string

	// Query holds the request parameters; part of the cache identity.
	Query map[string]string

	// Body is the request body for POST/PUT calls.
	Body []byte

	// Paginated requests follow the continuation cursor and accumulate
	// items across pages; the accumulated list is the cached unit.
	Paginated bool
}

// cacheKey derives the cache identity: endpoint + normalized params.
func (d Descriptor) cacheKey() string {
	return cache.Key{Base: d.Endpoint, Params: d.Query}.String()
}

// CacheOptions controls caching for one Fetch call.
type CacheOptions struct {
	// SkipCache bypasses the read path and refreshes the entry.
	SkipCache bool

	// ExpirationMinutes is the write-through TTL (default 30).
	ExpirationMinutes int

	// MaxCacheSize bounds the namespace entry count (default 100).
	MaxCacheSize int

	// Compress stores the payload compressed.
	Compress bool
}

// DefaultCacheOptions returns the standard fetch caching options.
func DefaultCacheOptions() CacheOptions {
	return CacheOptions{
		ExpirationMinutes: cache.DefaultTTLMinutes,
		MaxCacheSize:      cache.DefaultMaxEntries,
	}
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the remote API family (e.g. the ARM or Graph root).
	BaseURL string

	// Tokens supplies bearer tokens for every request.
	Tokens TokenProvider

	// UserAgent header (required).
	UserAgent string

	// Store is the shared cache; a fresh one is created when nil.
	Store *cache.Store

	// Namespace is the cache partition for this API family.
	// Defaults to the BaseURL host.
	Namespace string

	// MaxConcurrency bounds in-flight logical fetches (default 100).
	MaxConcurrency int64

	// Retry
	MaxRetries int           // default 3
	BaseDelay  time.Duration // default 5s

	// Timeout per wire call (default 30s).
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string, tokens TokenProvider) Config {
	return Config{
		BaseURL:        baseURL,
		Tokens:         tokens,
		UserAgent:      "blackcat/1.0",
		MaxConcurrency: 100,
		MaxRetries:     3,
		BaseDelay:      5 * time.Second,
		Timeout:        30 * time.Second,
	}
}

// Client is the request executor.
type Client struct {
	httpClient *http.Client
	store      *cache.Store
	throttle   *Tracker
	sem        *semaphore.Weighted
	config     Config
	logger     zerolog.Logger
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token provider is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	if cfg.Store == nil {
		cfg.Store = cache.NewStore()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = base.Host
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 100
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().
		Str("component", "request-executor").
		Str("namespace", cfg.Namespace).
		Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		store:    cfg.Store,
		throttle: NewTracker(logger),
		sem:      semaphore.NewWeighted(cfg.MaxConcurrency),
		config:   cfg,
		logger:   logger,
	}, nil
}

// Store returns the cache store backing this client, for analytics.
func (c *Client) Store() *cache.Store {
	return c.store
}

// Namespace returns the cache namespace used by this client.
func (c *Client) Namespace() string {
	return c.config.Namespace
}

func (c *Client) retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: c.config.MaxRetries,
		BaseDelay:   c.config.BaseDelay,
	}
}

// Fetch performs one logical fetch: cache check, dispatch with retry (and
// pagination when requested), then write-through. A 404 yields (nil, nil):
// probed resources are routinely absent and their absence is data, not
// failure. Cache write failures are logged and never surfaced.
func (c *Client) Fetch(ctx context.Context, desc Descriptor, opts CacheOptions) ([]byte, error) {
	endpoint := desc.Endpoint

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	key := desc.cacheKey()

	if !opts.SkipCache {
		if data, ok := c.store.Get(c.config.Namespace, key); ok {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Str("cache_key", key).
				Msg("Cache hit")
			return data, nil
		}
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire dispatch slot: %w", err)
	}
	defer c.sem.Release(1)

	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	var result []byte
	var err error
	if desc.Paginated {
		result, err = c.fetchAllPages(ctx, desc)
	} else {
		result, err = c.fetchOnce(ctx, desc)
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		// Not found: no data, nothing to cache.
		return nil, nil
	}

	if putErr := c.store.Put(c.config.Namespace, key, json.RawMessage(result), cache.PutOptions{
		TTLMinutes: opts.ExpirationMinutes,
		MaxEntries: opts.MaxCacheSize,
		Compress:   opts.Compress,
	}); putErr != nil {
		// Caching is strictly best-effort.
		c.logger.Warn().
			Err(putErr).
			Str("endpoint", endpoint).
			Msg("Cache write-through failed")
	}

	return result, nil
}

// FetchJSON fetches and decodes the result into out.
// Returns false without error when the resource does not exist.
func (c *Client) FetchJSON(ctx context.Context, desc Descriptor, opts CacheOptions, out any) (bool, error) {
	data, err := c.Fetch(ctx, desc, opts)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode response for %s: %w", desc.Endpoint, err)
	}
	return true, nil
}

// fetchOnce issues a single wire call under the retry policy.
// Returns (nil, nil) on 404.
func (c *Client) fetchOnce(ctx context.Context, desc Descriptor) ([]byte, error) {
	var body []byte
	var notFound bool

	err := retryWithBackoff(ctx, c.retryConfig(), c.logger, func() error {
		data, nf, err := c.roundTrip(ctx, desc, "")
		if err != nil {
			return err
		}
		body, notFound = data, nf
		return nil
	})
	if err != nil {
		return nil, err
	}
	if notFound {
		return nil, nil
	}
	return body, nil
}

// roundTrip performs one wire call. When cursor is non-empty it targets the
// continuation URL verbatim; otherwise it builds the URL from the
// descriptor. The bool result marks a 404.
func (c *Client) roundTrip(ctx context.Context, desc Descriptor, cursor string) ([]byte, bool, error) {
	endpoint := desc.Endpoint

	req, err := c.newRequest(ctx, desc, cursor)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassTransient)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, false, &RequestError{
			Class:    ErrorClassTransient,
			Endpoint: endpoint,
			Message:  "network error",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	c.throttle.UpdateFromHeaders(resp.StatusCode, resp.Header)
	requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if class := classifyStatus(resp.StatusCode); class != "" {
		if class == ErrorClassNotFound {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Msg("Resource not found - returning empty result")
			return nil, true, nil
		}

		errorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Request error")

		return nil, false, &RequestError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Endpoint:   endpoint,
			Message:    resp.Status,
			RetryAfter: parseRetryAfter(resp.Header),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassTransient)).Inc()
		return nil, false, &RequestError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassTransient,
			Endpoint:   endpoint,
			Message:    "read response body",
			Err:        err,
		}
	}

	return data, false, nil
}

// newRequest builds the HTTP request with authorization and agent headers.
func (c *Client) newRequest(ctx context.Context, desc Descriptor, cursor string) (*http.Request, error) {
	method := desc.Method
	if method == "" {
		method = http.MethodGet
	}

	target := cursor
	if target == "" {
		u, err := url.Parse(c.config.BaseURL + desc.Endpoint)
		if err != nil {
			return nil, &RequestError{
				Class:    ErrorClassClient,
				Endpoint: desc.Endpoint,
				Message:  "invalid request URL",
				Err:      err,
			}
		}
		q := u.Query()
		for name, value := range desc.Query {
			q.Set(name, value)
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}

	var body io.Reader
	if len(desc.Body) > 0 {
		body = bytes.NewReader(desc.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &RequestError{
			Class:    ErrorClassClient,
			Endpoint: desc.Endpoint,
			Message:  "create request",
			Err:      err,
		}
	}

	token, err := c.config.Tokens.Token(ctx)
	if err != nil {
		return nil, &RequestError{
			Class:    ErrorClassAuth,
			Endpoint: desc.Endpoint,
			Message:  "acquire token",
			Err:      err,
		}
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if len(desc.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}
