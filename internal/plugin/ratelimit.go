// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package plugin

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/tomtom215/conventus/internal/metrics"
	"github.com/tomtom215/conventus/internal/models"
)

// limitTracker owns one plugin's mutable rate-limit counter. Each plugin
// instance tracks its own budget; no cross-process coordination is
// attempted (valid while ingestion runs as a single periodic job).
type limitTracker struct {
	source string

	mu     sync.Mutex
	status models.RateLimitStatus
}

// newLimitTracker seeds a tracker from platform defaults or injected
// configuration.
func newLimitTracker(source string, limit int, window time.Duration) *limitTracker {
	return &limitTracker{
		source: source,
		status: models.RateLimitStatus{
			Limit:     limit,
			Remaining: limit,
			ResetAt:   time.Now().Add(window),
			Window:    window,
		},
	}
}

// Snapshot returns a copy of the current throttle state, never a live
// reference.
func (t *limitTracker) Snapshot() models.RateLimitStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfElapsed(time.Now())
	return t.status
}

// Consume decrements the remaining budget. Called on every outbound request
// attempt, independent of success or failure.
func (t *limitTracker) Consume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfElapsed(time.Now())
	t.status.Remaining--
	metrics.RateLimitRemaining.WithLabelValues(t.source).Set(float64(t.status.Remaining))
}

// Wait blocks until the current window allows another request. When the
// budget is exhausted and a reset time is known, it sleeps until ResetAt
// elapses and restores the budget to the full limit.
func (t *limitTracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	now := time.Now()
	t.resetIfElapsed(now)
	exhausted := t.status.Remaining <= 0
	resetAt := t.status.ResetAt
	t.mu.Unlock()

	if !exhausted || resetAt.IsZero() || !resetAt.After(now) {
		return nil
	}

	metrics.RateLimitWaitsTotal.WithLabelValues(t.source).Inc()

	select {
	case <-time.After(time.Until(resetAt)):
	case <-ctx.Done():
		return ctx.Err()
	}

	t.mu.Lock()
	t.resetIfElapsed(time.Now())
	t.mu.Unlock()
	return nil
}

// UpdateFromHeaders overrides local estimates with live rate-limit response
// headers, keeping local state eventually consistent with the true
// server-side budget. Recognized headers: X-RateLimit-Limit,
// X-RateLimit-Remaining, X-RateLimit-Reset (either unix seconds or
// seconds-until-reset).
func (t *limitTracker) UpdateFromHeaders(h http.Header) {
	limit, hasLimit := headerInt(h, "X-RateLimit-Limit")
	remaining, hasRemaining := headerInt(h, "X-RateLimit-Remaining")
	reset, hasReset := headerInt(h, "X-RateLimit-Reset")

	if !hasLimit && !hasRemaining && !hasReset {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if hasLimit && limit > 0 {
		t.status.Limit = limit
	}
	if hasRemaining {
		t.status.Remaining = remaining
		metrics.RateLimitRemaining.WithLabelValues(t.source).Set(float64(remaining))
	}
	if hasReset && reset > 0 {
		// Values larger than a year in seconds are unix timestamps.
		if reset > int(365*24*time.Hour/time.Second) {
			t.status.ResetAt = time.Unix(int64(reset), 0)
		} else {
			t.status.ResetAt = time.Now().Add(time.Duration(reset) * time.Second)
		}
	}
}

// resetIfElapsed restores the budget when the window has passed. Caller
// must hold t.mu.
func (t *limitTracker) resetIfElapsed(now time.Time) {
	if !t.status.ResetAt.IsZero() && now.After(t.status.ResetAt) {
		t.status.Remaining = t.status.Limit
		t.status.ResetAt = now.Add(t.status.Window)
	}
}

// headerInt parses an integer header value.
func headerInt(h http.Header, key string) (int, bool) {
	v := h.Get(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
