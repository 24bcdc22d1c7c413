// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package plugin

import (
	"context"

	"github.com/tomtom215/conventus/internal/models"
)

// Source tags for the built-in plugins.
const (
	SourceEventbrite  = "eventbrite"
	SourceMeetup      = "meetup"
	SourceMeetupWeb   = "meetup-web"
	SourceLumaWeb     = "luma-web"
	SourceSiteScraper = "site-scraper"
)

// Plugin is the uniform contract every source adapter satisfies. Concrete
// sources are a closed set of variants composing the shared Fetcher rather
// than inheriting from a base implementation.
type Plugin interface {
	// Source returns the platform tag, unique per plugin.
	Source() string

	// Enabled reports whether the plugin is switched on in configuration.
	Enabled() bool

	// ValidateConfig reports whether the plugin is enabled and, where
	// credentials are required, a credential is present. Cheap and
	// side-effect-free.
	ValidateConfig() bool

	// HealthCheck runs a lightweight platform-specific probe. It never
	// fails outright; probe failures are captured into the returned
	// status.
	HealthCheck(ctx context.Context) models.HealthStatus

	// RateLimitStatus returns a snapshot (copy, not a live reference) of
	// the current throttle state.
	RateLimitStatus() models.RateLimitStatus

	// FetchEvents retrieves and normalizes the platform's event listing.
	// It waits out active rate-limit windows, retries retryable failures
	// with exponential backoff, and surfaces a typed *Error on
	// exhaustion. Pagination within one fetch is strictly sequential.
	FetchEvents(ctx context.Context, filters models.EventFilters) ([]models.NormalizedEvent, error)
}

// Compile-time checks that all built-in sources satisfy the contract.
var (
	_ Plugin = (*Eventbrite)(nil)
	_ Plugin = (*Meetup)(nil)
	_ Plugin = (*MeetupWeb)(nil)
	_ Plugin = (*LumaWeb)(nil)
	_ Plugin = (*SiteScraper)(nil)
)
