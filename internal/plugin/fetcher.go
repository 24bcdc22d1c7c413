// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/conventus/internal/logging"
	"github.com/tomtom215/conventus/internal/metrics"
	"github.com/tomtom215/conventus/internal/models"
)

// maxErrorBodySize limits how much of an error response body is read for
// diagnostics.
const maxErrorBodySize = 64 * 1024 // 64KB

// FetcherConfig configures the shared reliability layer of one plugin.
type FetcherConfig struct {
	// Source is the plugin's source tag, used for errors, metrics and logs.
	Source string

	// Timeout bounds each outbound HTTP request. Default: 30s.
	Timeout time.Duration

	// MaxRetries is the retry budget for retryable failures. A fetch makes
	// at most MaxRetries+1 attempts. Default: 3.
	MaxRetries int

	// BaseDelay seeds exponential backoff (BaseDelay * 2^attempt).
	// Default: 1s.
	BaseDelay time.Duration

	// RateLimit seeds the request budget per window. Default: 1000.
	RateLimit int

	// RateWindow is the rolling window after which the budget resets.
	// Default: 1h.
	RateWindow time.Duration
}

// Fetcher is the reusable reliable-fetch helper composed into every plugin.
// It waits out exhausted rate-limit windows, classifies failures, retries
// retryable ones with exponential backoff, and trips a circuit breaker on
// sustained failure.
type Fetcher struct {
	source     string
	client     *http.Client
	limits     *limitTracker
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	maxRetries int
	baseDelay  time.Duration
}

// NewFetcher creates a Fetcher with defaults applied.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1000
	}
	if cfg.RateWindow == 0 {
		cfg.RateWindow = time.Hour
	}

	cbName := cfg.Source + "-fetch"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		// Open when failure rate >= 60% with at least 10 requests.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", breakerStateString(from)).
				Str("to", breakerStateString(to)).
				Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, breakerStateString(from), breakerStateString(to)).Inc()
		},
	})

	return &Fetcher{
		source:     cfg.Source,
		client:     &http.Client{Timeout: cfg.Timeout},
		limits:     newLimitTracker(cfg.Source, cfg.RateLimit, cfg.RateWindow),
		breaker:    breaker,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
	}
}

// RateLimitStatus returns a snapshot of the tracker state.
func (f *Fetcher) RateLimitStatus() models.RateLimitStatus {
	return f.limits.Snapshot()
}

// Do executes one HTTP request under the full reliability contract: wait
// out the rate-limit window, consume budget per attempt, classify failures,
// retry retryable kinds with exponential backoff, and re-surface the last
// error after exhaustion. Terminal kinds (auth, not-found) fail on the
// first attempt without consuming retry budget.
//
// build constructs a fresh request per attempt; request bodies are not
// reusable across retries otherwise.
func (f *Fetcher) Do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	var lastErr *Error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Block until the current window allows another request.
		if err := f.limits.Wait(ctx); err != nil {
			return nil, err
		}

		// Budget is consumed on every attempt, regardless of outcome.
		f.limits.Consume()

		resp, retryAfter, ferr := f.attempt(ctx, build)
		if ferr == nil {
			metrics.PluginFetchesTotal.WithLabelValues(f.source, "success").Inc()
			return resp, nil
		}

		metrics.PluginFetchesTotal.WithLabelValues(f.source, "error").Inc()
		if !ferr.Kind.Retryable() {
			return nil, ferr
		}
		lastErr = ferr

		if attempt == f.maxRetries {
			break
		}

		metrics.PluginRetriesTotal.WithLabelValues(f.source, string(ferr.Kind)).Inc()

		// Exponential backoff; a server-provided Retry-After wins.
		delay := f.baseDelay * time.Duration(1<<uint(attempt))
		if retryAfter > 0 {
			delay = retryAfter
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// attempt performs a single request attempt and classifies its outcome.
// retryAfter carries a server-provided Retry-After hint for 429 responses.
func (f *Fetcher) attempt(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (resp *http.Response, retryAfter time.Duration, ferr *Error) {
	resp, err := f.breaker.Execute(func() (*http.Response, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		return f.client.Do(req)
	})
	if err != nil {
		kind := Classify(err)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			kind = KindUnknown
		}
		return nil, 0, NewError(f.source, kind, err)
	}

	// Live rate-limit headers override the local estimate.
	f.limits.UpdateFromHeaders(resp.Header)

	kind, bad := ClassifyStatus(resp.StatusCode)
	if !bad {
		return resp, 0, nil
	}

	body := readBodyForError(resp.Body)
	_ = resp.Body.Close()

	if kind == KindRateLimited {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if d, perr := time.ParseDuration(ra + "s"); perr == nil {
				retryAfter = d
			}
		}
	}

	return nil, retryAfter, NewError(f.source, kind,
		fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)))
}

// GetJSON executes the request and decodes a JSON response body into
// result.
func (f *Fetcher) GetJSON(ctx context.Context, build func(ctx context.Context) (*http.Request, error), result interface{}) error {
	resp, err := f.Do(ctx, build)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return NewError(f.source, KindUnknown, fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

// GetText executes the request and returns the response body as a string.
func (f *Fetcher) GetText(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (string, error) {
	resp, err := f.Do(ctx, build)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewError(f.source, KindUnknown, fmt.Errorf("read response: %w", err))
	}
	return string(body), nil
}

// Probe runs a lightweight request and captures the outcome into a
// HealthStatus. Probes bypass retry; a slow or failing endpoint should be
// visible, not masked.
func (f *Fetcher) Probe(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) models.HealthStatus {
	start := time.Now()
	status := models.HealthStatus{CheckedAt: start}

	req, err := build(ctx)
	if err != nil {
		status.LastError = err.Error()
		status.ResponseTime = time.Since(start)
		return status
	}

	resp, err := f.client.Do(req)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.LastError = err.Error()
		return status
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))

	if kind, bad := ClassifyStatus(resp.StatusCode); bad {
		status.LastError = fmt.Sprintf("%s: unexpected status %d", kind, resp.StatusCode)
		return status
	}

	status.Healthy = true
	return status
}

// readBodyForError reads at most maxErrorBodySize bytes for diagnostics.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}

// breakerStateFloat converts a breaker state to a metric value.
func breakerStateFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// breakerStateString converts a breaker state to a label value.
func breakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
