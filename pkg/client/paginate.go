package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// pageEnvelope is the common inventory/graph page shape: an item array plus
// an optional continuation cursor.
type pageEnvelope struct {
	Value         []json.RawMessage `json:"value"`
	NextLink      string            `json:"nextLink"`
	ODataNextLink string            `json:"@odata.nextLink"`
}

func (p pageEnvelope) cursor() string {
	if p.NextLink != "" {
		return p.NextLink
	}
	return p.ODataNextLink
}

// fetchAllPages follows the continuation cursor until the server stops
// returning one, accumulating items across pages. The accumulated list is
// the unit the caller caches, never individual pages. Throttling mid-walk
// backs off and resumes from the same cursor; cancellation aborts the walk.
// Returns (nil, nil) when the first page is a 404.
func (c *Client) fetchAllPages(ctx context.Context, desc Descriptor) ([]byte, error) {
	start := time.Now()

	var items []json.RawMessage
	cursor := ""
	pages := 0

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		default:
		}

		var data []byte
		var notFound bool
		err := retryWithBackoff(ctx, c.retryConfig(), c.logger, func() error {
			// Re-running the same cursor after a throttled attempt is
			// what resumes the walk instead of restarting it.
			d, nf, err := c.roundTrip(ctx, desc, cursor)
			if err != nil {
				return err
			}
			data, notFound = d, nf
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("page %d of %s: %w", pages+1, desc.Endpoint, err)
		}
		if notFound {
			if pages == 0 {
				return nil, nil
			}
			// A cursor that vanished mid-walk ends the walk with what
			// we have.
			break
		}

		var env pageEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode page %d of %s: %w", pages+1, desc.Endpoint, err)
		}

		items = append(items, env.Value...)
		pages++

		next := env.cursor()
		if next == "" {
			break
		}
		cursor = next

		if pages%10 == 0 {
			c.logger.Info().
				Str("endpoint", desc.Endpoint).
				Int("pages", pages).
				Int("items", len(items)).
				Msg("Pagination progress")
		}
	}

	c.logger.Debug().
		Str("endpoint", desc.Endpoint).
		Int("pages", pages).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Pagination complete")

	if items == nil {
		items = []json.RawMessage{}
	}
	return json.Marshal(items)
}
