package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for throttle tracking.
var (
	throttleQuotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blackcat_throttle_quota_remaining",
		Help: "Most recently observed remaining request quota",
	})

	throttleWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blackcat_throttle_waits_total",
		Help: "Total number of dispatches delayed by an active Retry-After window",
	})
)

// Header reported by ARM with the remaining read quota for the subscription.
const headerQuotaRemaining = "x-ms-ratelimit-remaining-subscription-reads"

// Tracker records the most recent throttle signals observed on responses
// and gates new dispatches while a Retry-After window is open. State is
// in-process; every worker shares the same view.
type Tracker struct {
	mu         sync.Mutex
	holdUntil  time.Time
	remaining  int // -1 until a quota header has been seen
	lastUpdate time.Time
	logger     zerolog.Logger
}

// NewTracker creates a throttle tracker.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{
		remaining: -1,
		logger:    logger,
	}
}

// UpdateFromHeaders records throttle state from a response. A Retry-After
// value on a 429 opens a hold window that Wait honors for all workers.
func (t *Tracker) UpdateFromHeaders(status int, headers http.Header) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastUpdate = time.Now()

	if remainStr := headers.Get(headerQuotaRemaining); remainStr != "" {
		if remain, err := strconv.Atoi(remainStr); err == nil {
			t.remaining = remain
			throttleQuotaRemaining.Set(float64(remain))
		}
	}

	if status != http.StatusTooManyRequests {
		return
	}

	if wait := parseRetryAfter(headers); wait > 0 {
		until := time.Now().Add(wait)
		if until.After(t.holdUntil) {
			t.holdUntil = until
		}
		t.logger.Warn().
			Dur("retry_after", wait).
			Int("quota_remaining", t.remaining).
			Msg("Throttled by server - holding new dispatches")
	}
}

// Wait blocks until any active Retry-After window has passed or the context
// is cancelled. Only the calling goroutine sleeps.
func (t *Tracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	wait := time.Until(t.holdUntil)
	t.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	throttleWaitsTotal.Inc()
	t.logger.Debug().
		Dur("wait", wait).
		Msg("Waiting out throttle window before dispatch")

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
	case <-time.After(wait):
		return nil
	}
}

// Remaining returns the most recently observed quota, -1 if unknown.
func (t *Tracker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// IsStale returns true if no throttle signal has been seen within maxAge.
func (t *Tracker) IsStale(maxAge time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Since(t.lastUpdate) > maxAge
}
