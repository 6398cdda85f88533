// Package testutil provides a configurable mock of the resource-management
// API surface for tests: scripted responses, throttling, cursor pagination,
// and a $batch endpoint.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse scripts one endpoint's reply.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock API server.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requestCount int
	pathCounts   map[string]int
	lastHeader   http.Header
}

// NewMockAPI starts a mock server. Callers own its lifetime; register a
// t.Cleanup(mock.Close).
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers:   make(map[string]http.HandlerFunc),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.lastHeader = r.Header.Clone()
		handler := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if handler != nil {
			handler(w, r)
			return
		}
		mock.defaultHandler(w)
	}))

	return mock
}

// URL returns the mock server base URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts the server down.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears request tracking but keeps registered handlers.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCounts = make(map[string]int)
	m.lastHeader = nil
}

// SetHandler registers a custom handler for one path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse scripts a fixed response for one path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetThrottled scripts a path that answers 429 with Retry-After for the
// first `times` requests, then delegates to `then`.
func (m *MockAPI) SetThrottled(path string, times int, retryAfterSeconds int, then http.HandlerFunc) {
	var mu sync.Mutex
	remaining := times

	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		throttle := remaining > 0
		if throttle {
			remaining--
		}
		mu.Unlock()

		if throttle {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":"TooManyRequests"}}`))
			return
		}
		then(w, r)
	})
}

// SetPagedResponse scripts a cursor-paginated listing: each page holds one
// chunk of items and links to the next via nextLink until the last chunk.
func (m *MockAPI) SetPagedResponse(path string, pages [][]string) {
	for i, chunk := range pages {
		pagePath := path
		if i > 0 {
			pagePath = fmt.Sprintf("%s/page/%d", path, i)
		}

		items := make([]json.RawMessage, len(chunk))
		for j, item := range chunk {
			items[j] = json.RawMessage(item)
		}

		page := map[string]any{"value": items}
		if i < len(pages)-1 {
			page["nextLink"] = fmt.Sprintf("%s%s/page/%d", m.server.URL, path, i+1)
		}

		body, err := json.Marshal(page)
		if err != nil {
			panic(fmt.Sprintf("testutil: encode page: %v", err))
		}
		m.SetResponse(pagePath, MockResponse{StatusCode: http.StatusOK, Body: string(body)})
	}
}

// EnableBatch registers a /$batch endpoint that dispatches sub-requests
// against the mock's own handlers and wraps their outcomes in a response
// envelope.
func (m *MockAPI) EnableBatch() {
	m.SetHandler("/$batch", func(w http.ResponseWriter, r *http.Request) {
		var envelope struct {
			Requests []struct {
				ID     string `json:"id"`
				Method string `json:"method"`
				URL    string `json:"url"`
			} `json:"requests"`
		}
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			http.Error(w, "malformed batch envelope", http.StatusBadRequest)
			return
		}

		type subResponse struct {
			ID     string          `json:"id"`
			Status int             `json:"status"`
			Body   json.RawMessage `json:"body,omitempty"`
		}

		responses := make([]subResponse, 0, len(envelope.Requests))
		for _, sub := range envelope.Requests {
			m.mu.RLock()
			handler := m.handlers[sub.URL]
			m.mu.RUnlock()

			if handler == nil {
				responses = append(responses, subResponse{ID: sub.ID, Status: http.StatusNotFound})
				continue
			}

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(sub.Method, sub.URL, nil)
			handler(rec, req)

			resp := subResponse{ID: sub.ID, Status: rec.Code}
			if rec.Code < 400 && rec.Body.Len() > 0 {
				resp.Body = json.RawMessage(rec.Body.Bytes())
			}
			responses = append(responses, resp)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"responses": responses})
	})
}

// RequestCount returns the total requests served.
func (m *MockAPI) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the requests served for one path.
func (m *MockAPI) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockAPI) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// defaultHandler answers unregistered paths with an empty object and a
// healthy quota header.
func (m *MockAPI) defaultHandler(w http.ResponseWriter) {
	w.Header().Set("x-ms-ratelimit-remaining-subscription-reads", "11999")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{}`))
}

// OKResponse builds a 200 response with a healthy quota header.
func OKResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"x-ms-ratelimit-remaining-subscription-reads": "11999",
			"Content-Type": "application/json",
		},
	}
}

// ThrottledResponse builds a 429 response with a Retry-After hint.
func ThrottledResponse(retryAfterSeconds int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error":{"code":"TooManyRequests"}}`,
		Headers: map[string]string{
			"Retry-After": strconv.Itoa(retryAfterSeconds),
		},
	}
}

// ServerErrorResponse builds a 500 response.
func ServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":{"code":"InternalServerError"}}`,
	}
}

// NotFoundResponse builds a 404 response.
func NotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error":{"code":"ResourceNotFound"}}`,
	}
}
