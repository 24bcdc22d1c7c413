// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

// Package plugin implements the source-plugin framework: the uniform
// fetch/health/rate-limit contract every platform adapter satisfies, the
// shared reliability layer (error classification, retry with exponential
// backoff, rate-limit window tracking, circuit breaking), and the registry
// that owns the active plugin set.
//
// # Contract
//
// Every plugin implements Plugin. FetchEvents must wait out an exhausted
// rate-limit window, retry retryable failures with exponential backoff, and
// surface a typed *Error on exhaustion. HealthCheck never fails outright;
// probe failures are captured in the returned HealthStatus.
//
// # Concrete sources
//
// Authenticated API plugins (Eventbrite, Meetup) parse live rate-limit
// headers after each response, keeping local counters eventually consistent
// with the server-side budget. Scraper plugins (Meetup web, Luma web,
// generic site scraper) fetch page text through a reader proxy, parse a
// platform-agnostic intermediate shape, and resolve free-text date strings
// into absolute timestamps.
//
// # Known limitation
//
// Rate-limit counters are owned by their plugin instance with no
// cross-process coordination. Running ingestion from multiple concurrent
// workers against the same external account will under-count usage against
// the platform's real limit; ingestion is expected to run as one periodic
// job.
package plugin
