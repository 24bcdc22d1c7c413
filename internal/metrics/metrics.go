// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

// Package metrics provides Prometheus metrics collection for observability.
//
// Metrics cover the HTTP API, plugin fetch outcomes, rate limiting, circuit
// breaker state, ingestion runs, and recommendation generation. They are
// exposed at /metrics in Prometheus text format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests processed",
	}, []string{"method", "endpoint", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
	}, []string{"method", "endpoint"})
)

// Plugin fetch metrics.
var (
	PluginFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plugin_fetches_total",
		Help: "Plugin fetch attempts by outcome",
	}, []string{"source", "outcome"})

	PluginFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "plugin_fetch_duration_seconds",
		Help:    "Duration of plugin fetchEvents calls",
		Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120},
	}, []string{"source"})

	PluginRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plugin_retries_total",
		Help: "Retry attempts by error classification",
	}, []string{"source", "kind"})

	RateLimitRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "plugin_rate_limit_remaining",
		Help: "Remaining requests in the current rate-limit window",
	}, []string{"source"})

	RateLimitWaitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plugin_rate_limit_waits_total",
		Help: "Times a fetch blocked waiting for a rate-limit window reset",
	}, []string{"source"})
)

// Circuit breaker metrics.
var (
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	CircuitBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_transitions_total",
		Help: "Circuit breaker state transitions",
	}, []string{"name", "from", "to"})
)

// Ingestion metrics.
var (
	IngestRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_runs_total",
		Help: "Per-source ingestion outcomes",
	}, []string{"source", "outcome"})

	IngestEventsStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_events_stored_total",
		Help: "Events stored (upserted) per source",
	}, []string{"source"})

	IngestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingest_duration_seconds",
		Help:    "Duration of per-source ingestion",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	}, []string{"source"})

	IngestLastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ingest_last_success_timestamp",
		Help: "Unix timestamp of the last successful ingestion per source",
	}, []string{"source"})
)

// Recommendation metrics.
var (
	RecommendRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recommend_requests_total",
		Help: "Recommendation requests by algorithm and cache outcome",
	}, []string{"algorithm", "cache"})

	RecommendGenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recommend_generation_duration_seconds",
		Help:    "Time to generate a fresh recommendation set",
		Buckets: []float64{.01, .05, .1, .5, 1, 5, 10},
	}, []string{"algorithm"})

	RecommendScoresPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recommend_scores_persisted_total",
		Help: "Recommendation rows upserted across all generation cycles",
	})
)
