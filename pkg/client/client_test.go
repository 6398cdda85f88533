package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient builds a client against the given server with fast retries.
func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	cfg := DefaultConfig(serverURL, StaticToken("test-token"))
	cfg.Namespace = "test"
	cfg.BaseDelay = 10 * time.Millisecond
	cfg.Timeout = 5 * time.Second

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{
			name:        "valid config",
			config:      DefaultConfig("https://management.azure.com", StaticToken("t")),
			expectError: false,
		},
		{
			name: "missing base URL",
			config: Config{
				Tokens:    StaticToken("t"),
				UserAgent: "blackcat/1.0",
			},
			expectError: true,
		},
		{
			name: "missing user agent",
			config: Config{
				BaseURL: "https://management.azure.com",
				Tokens:  StaticToken("t"),
			},
			expectError: true,
		},
		{
			name: "missing token provider",
			config: Config{
				BaseURL:   "https://management.azure.com",
				UserAgent: "blackcat/1.0",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.config)
			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if c == nil {
				t.Error("Client is nil")
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{
		BaseURL:   "https://management.azure.com",
		Tokens:    StaticToken("t"),
		UserAgent: "blackcat/1.0",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if c.config.Namespace != "management.azure.com" {
		t.Errorf("Namespace = %q, want base URL host", c.config.Namespace)
	}
	if c.config.MaxConcurrency != 100 {
		t.Errorf("MaxConcurrency = %d, want 100", c.config.MaxConcurrency)
	}
	if c.config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", c.config.MaxRetries)
	}
	if c.config.BaseDelay != 5*time.Second {
		t.Errorf("BaseDelay = %v, want 5s", c.config.BaseDelay)
	}
	if c.Store() == nil {
		t.Error("Store should default to a fresh cache")
	}
}

func TestFetch_SuccessAndWriteThrough(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"vault-1"}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	ctx := context.Background()
	desc := Descriptor{Endpoint: "/vaults/vault-1"}

	data, err := c.Fetch(ctx, desc, DefaultCacheOptions())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(data) != `{"id":"vault-1"}` {
		t.Errorf("Fetch = %s", data)
	}

	// Second fetch must come from cache: no new server hit.
	if _, err := c.Fetch(ctx, desc, DefaultCacheOptions()); err != nil {
		t.Fatalf("cached Fetch failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1 (write-through cache)", hits.Load())
	}
}

func TestFetch_SkipCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"n":1}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	ctx := context.Background()
	desc := Descriptor{Endpoint: "/vaults"}

	opts := DefaultCacheOptions()
	if _, err := c.Fetch(ctx, desc, opts); err != nil {
		t.Fatal(err)
	}

	opts.SkipCache = true
	if _, err := c.Fetch(ctx, desc, opts); err != nil {
		t.Fatal(err)
	}

	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2 with SkipCache", hits.Load())
	}
}

func TestFetch_NotFoundIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	data, err := c.Fetch(context.Background(), Descriptor{Endpoint: "/vaults/absent"}, DefaultCacheOptions())
	if err != nil {
		t.Fatalf("404 must not be an error, got %v", err)
	}
	if data != nil {
		t.Errorf("404 should yield an absent result, got %s", data)
	}
	if c.Store().Count("test") != 0 {
		t.Error("absent results must not be cached")
	}
}

func TestFetch_AuthFailureFailsFast(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	_, err := c.Fetch(context.Background(), Descriptor{Endpoint: "/vaults"}, DefaultCacheOptions())
	if err == nil {
		t.Fatal("Expected auth error")
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d; 401 must not be retried", hits.Load())
	}
}

func TestFetch_ThrottledThenSuccess(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	start := time.Now()
	data, err := c.Fetch(context.Background(), Descriptor{Endpoint: "/vaults"}, DefaultCacheOptions())
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Fetch should succeed on attempt 3, got %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("Fetch = %s", data)
	}
	if hits.Load() != 3 {
		t.Errorf("server hits = %d, want 3", hits.Load())
	}
	// Linear backoff with 10ms base: 10ms + 20ms minimum.
	if elapsed < 30*time.Millisecond {
		t.Errorf("elapsed = %v, want at least 30ms of backoff", elapsed)
	}
}

func TestFetch_RetriesExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	_, err := c.Fetch(context.Background(), Descriptor{Endpoint: "/vaults"}, DefaultCacheOptions())
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
}

func TestFetchJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"kv-prod","location":"westeurope"}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	var vault struct {
		Name     string `json:"name"`
		Location string `json:"location"`
	}
	found, err := c.FetchJSON(context.Background(), Descriptor{Endpoint: "/vaults/kv-prod"}, DefaultCacheOptions(), &vault)
	if err != nil {
		t.Fatalf("FetchJSON failed: %v", err)
	}
	if !found {
		t.Fatal("FetchJSON reported absent for an existing resource")
	}
	if vault.Name != "kv-prod" || vault.Location != "westeurope" {
		t.Errorf("decoded %+v", vault)
	}
}

func TestFetch_QueryParamsSent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("api-version"); got != "2023-07-01" {
			t.Errorf("api-version = %q", got)
		}
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	desc := Descriptor{
		Endpoint: "/vaults",
		Query:    map[string]string{"api-version": "2023-07-01"},
	}
	if _, err := c.Fetch(context.Background(), desc, DefaultCacheOptions()); err != nil {
		t.Fatal(err)
	}
}

func TestFetch_CacheKeyIncludesParams(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		fmt.Fprintf(w, `{"n":%d}`, n)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	ctx := context.Background()

	d1 := Descriptor{Endpoint: "/vaults", Query: map[string]string{"$top": "10"}}
	d2 := Descriptor{Endpoint: "/vaults", Query: map[string]string{"$top": "20"}}

	r1, err := c.Fetch(ctx, d1, DefaultCacheOptions())
	if err != nil {
		t.Fatal(err)
	}
	r2, err := c.Fetch(ctx, d2, DefaultCacheOptions())
	if err != nil {
		t.Fatal(err)
	}

	if string(r1) == string(r2) {
		t.Error("descriptors with different params must cache separately")
	}
	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2", hits.Load())
	}
}

func TestFetch_WriteThroughFailureDoesNotFailFetch(t *testing.T) {
	// Invalid JSON payload still returns to the caller; only the cache
	// write (json.RawMessage validation) fails.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `this is not json`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	data, err := c.Fetch(context.Background(), Descriptor{Endpoint: "/broken"}, DefaultCacheOptions())
	if err != nil {
		t.Fatalf("fetch must not fail when only the cache write fails: %v", err)
	}
	if string(data) != `this is not json` {
		t.Errorf("Fetch = %s", data)
	}
}

func TestDescriptor_CacheKeyIgnoresParamOrder(t *testing.T) {
	d1 := Descriptor{Endpoint: "/vaults", Query: map[string]string{"a": "1", "b": "2"}}
	d2 := Descriptor{Endpoint: "/vaults", Query: map[string]string{"b": "2", "a": "1"}}

	if d1.cacheKey() != d2.cacheKey() {
		t.Errorf("cache keys differ: %q vs %q", d1.cacheKey(), d2.cacheKey())
	}
}

func TestFetch_ResponseIsValidJSONArrayAfterPagination(t *testing.T) {
	pageHits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pageHits++
		fmt.Fprint(w, `{"value":[{"id":1},{"id":2}]}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	data, err := c.Fetch(context.Background(), Descriptor{Endpoint: "/items", Paginated: true}, DefaultCacheOptions())
	if err != nil {
		t.Fatal(err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		t.Fatalf("paginated result is not a JSON array: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("items = %d, want 2", len(items))
	}
}
