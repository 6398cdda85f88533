package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/azurekid/blackcat-go/pkg/cache"
)

// MaxBatchSize is the sub-request limit per wire call, matching the remote
// $batch endpoint's documented maximum.
const MaxBatchSize = 20

// BatchRequest is one logical sub-request inside a $batch wire call.
type BatchRequest struct {
	// ID correlates the sub-request with its response. Assigned a UUID
	// when empty; must be unique within one FetchBatch call.
	ID string `json:"id"`

	// Method defaults to GET.
	Method string `json:"method"`

	// URL is the sub-request path relative to the API root.
	URL string `json:"url"`
}

// BatchResult is the demultiplexed outcome of one sub-request.
type BatchResult struct {
	ID     string          `json:"id"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body,omitempty"`

	// Err is set for failed sub-requests. A 404 is not a failure: it
	// yields Status 404 with a nil Err and no body.
	Err error `json:"-"`

	// ErrorMessage mirrors Err for serialized reports.
	ErrorMessage string `json:"error,omitempty"`
}

// fail records err on the result in both forms.
func (r *BatchResult) fail(err error) {
	r.Err = err
	r.ErrorMessage = err.Error()
}

// batch wire shapes.
type batchEnvelope struct {
	Requests []BatchRequest `json:"requests"`
}

type batchResponseEnvelope struct {
	Responses []struct {
		ID     string          `json:"id"`
		Status int             `json:"status"`
		Body   json.RawMessage `json:"body"`
	} `json:"responses"`
}

// batchCacheKey derives the cache identity of one sub-request. Batch-mode
// results cache under batch-flagged keys, separate from single-request
// fetches of the same URL.
func batchCacheKey(rawURL string) string {
	key := cache.Key{Base: rawURL, Batch: true}
	if u, err := url.Parse(rawURL); err == nil {
		key.Base = u.Path
		if q := u.Query(); len(q) > 0 {
			params := make(map[string]string, len(q))
			for name := range q {
				params[name] = q.Get(name)
			}
			key.Params = params
		}
	}
	return key.String()
}

// FetchBatch groups sub-requests into wire calls of at most MaxBatchSize
// and demultiplexes responses by correlation id. A failing sub-request is
// recorded against that id only and never aborts its siblings. Wire calls
// run in parallel under the client's concurrency bound.
//
// GET sub-requests participate in caching like single fetches: hits are
// served from the store without going to the wire, and successful bodies
// write through with the caller's options. Cache writes stay best-effort.
func (c *Client) FetchBatch(ctx context.Context, requests []BatchRequest, opts CacheOptions) (map[string]BatchResult, error) {
	if len(requests) == 0 {
		return map[string]BatchResult{}, nil
	}

	prepared := make([]BatchRequest, 0, len(requests))
	seen := make(map[string]bool, len(requests))
	for _, req := range requests {
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		if seen[req.ID] {
			return nil, fmt.Errorf("duplicate batch sub-request id %q", req.ID)
		}
		seen[req.ID] = true
		if req.Method == "" {
			req.Method = http.MethodGet
		}
		prepared = append(prepared, req)
	}

	results := make(map[string]BatchResult, len(prepared))

	// Serve cacheable sub-requests from the store before going to the wire.
	pending := prepared
	if !opts.SkipCache {
		pending = make([]BatchRequest, 0, len(prepared))
		for _, req := range prepared {
			if req.Method == http.MethodGet {
				if data, ok := c.store.Get(c.config.Namespace, batchCacheKey(req.URL)); ok {
					results[req.ID] = BatchResult{ID: req.ID, Status: http.StatusOK, Body: data}
					continue
				}
			}
			pending = append(pending, req)
		}
	}

	if len(pending) == 0 {
		c.logger.Debug().
			Int("sub_requests", len(prepared)).
			Msg("Batch served entirely from cache")
		return results, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for start := 0; start < len(pending); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		chunk := pending[start:end]

		g.Go(func() error {
			if err := c.sem.Acquire(gctx, 1); err != nil {
				return fmt.Errorf("acquire dispatch slot: %w", err)
			}
			defer c.sem.Release(1)

			if err := c.throttle.Wait(gctx); err != nil {
				return err
			}

			chunkResults, err := c.postBatch(gctx, chunk)
			if err != nil {
				return err
			}

			mu.Lock()
			for id, result := range chunkResults {
				results[id] = result
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Write successful sub-request bodies through under batch keys.
	for _, req := range pending {
		result := results[req.ID]
		if req.Method != http.MethodGet || result.Err != nil || result.Body == nil {
			continue
		}
		if putErr := c.store.Put(c.config.Namespace, batchCacheKey(req.URL), result.Body, cache.PutOptions{
			TTLMinutes: opts.ExpirationMinutes,
			MaxEntries: opts.MaxCacheSize,
			Compress:   opts.Compress,
		}); putErr != nil {
			// Caching is strictly best-effort.
			c.logger.Warn().
				Err(putErr).
				Str("sub_request", req.ID).
				Msg("Cache write-through failed")
		}
	}

	c.logger.Debug().
		Int("sub_requests", len(prepared)).
		Int("cache_hits", len(prepared)-len(pending)).
		Int("wire_calls", (len(pending)+MaxBatchSize-1)/MaxBatchSize).
		Msg("Batch fetch complete")

	return results, nil
}

// postBatch issues one $batch wire call under the retry policy and demuxes
// its responses.
func (c *Client) postBatch(ctx context.Context, chunk []BatchRequest) (map[string]BatchResult, error) {
	payload, err := json.Marshal(batchEnvelope{Requests: chunk})
	if err != nil {
		return nil, fmt.Errorf("encode batch request: %w", err)
	}

	desc := Descriptor{
		Endpoint: "/$batch",
		Method:   http.MethodPost,
		Body:     payload,
	}

	var body []byte
	err = retryWithBackoff(ctx, c.retryConfig(), c.logger, func() error {
		data, notFound, err := c.roundTrip(ctx, desc, "")
		if err != nil {
			return err
		}
		if notFound {
			return &RequestError{
				StatusCode: http.StatusNotFound,
				Class:      ErrorClassClient,
				Endpoint:   desc.Endpoint,
				Message:    "batch endpoint not found",
			}
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}

	var envelope batchResponseEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode batch response: %w", err)
	}

	results := make(map[string]BatchResult, len(chunk))
	for _, resp := range envelope.Responses {
		result := BatchResult{
			ID:     resp.ID,
			Status: resp.Status,
		}
		switch {
		case resp.Status == http.StatusNotFound:
			// Absent resource: recorded, not failed.
		case resp.Status >= 400:
			result.fail(&RequestError{
				StatusCode: resp.Status,
				Class:      classifyStatus(resp.Status),
				Endpoint:   desc.Endpoint,
				Message:    fmt.Sprintf("sub-request %s failed", resp.ID),
			})
		default:
			result.Body = resp.Body
		}
		results[resp.ID] = result
	}

	// A sub-request the server never answered is a failure for that id.
	for _, req := range chunk {
		if _, ok := results[req.ID]; !ok {
			result := BatchResult{ID: req.ID}
			result.fail(&RequestError{
				Class:    ErrorClassTransient,
				Endpoint: desc.Endpoint,
				Message:  fmt.Sprintf("no response for sub-request %s", req.ID),
			})
			results[req.ID] = result
		}
	}

	return results, nil
}
