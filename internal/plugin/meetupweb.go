// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package plugin

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/conventus/internal/config"
	"github.com/tomtom215/conventus/internal/models"
)

// MeetupWeb scrapes Meetup's public find page through the reader proxy.
// It requires no credentials and serves as the fallback when no Meetup API
// token is configured.
type MeetupWeb struct {
	scraperCore
}

// NewMeetupWeb creates the Meetup web scraper plugin.
func NewMeetupWeb(cfg config.ScraperSourceConfig, fcfg FetcherConfig, pages PageCache) *MeetupWeb {
	return &MeetupWeb{scraperCore: newScraperCore(SourceMeetupWeb, cfg, fcfg, pages)}
}

// Source returns the platform tag.
func (m *MeetupWeb) Source() string { return SourceMeetupWeb }

// Enabled reports the configuration flag.
func (m *MeetupWeb) Enabled() bool { return m.cfg.Enabled }

// ValidateConfig requires only the enabled flag; scrapers carry no
// credentials.
func (m *MeetupWeb) ValidateConfig() bool { return m.cfg.Enabled }

// RateLimitStatus returns a snapshot of the throttle state.
func (m *MeetupWeb) RateLimitStatus() models.RateLimitStatus {
	return m.fetcher.RateLimitStatus()
}

// HealthCheck probes the reader proxy against the find page.
func (m *MeetupWeb) HealthCheck(ctx context.Context) models.HealthStatus {
	return m.probeReader(ctx, "https://www.meetup.com/find/")
}

// FetchEvents reads the find page and parses event listing links.
func (m *MeetupWeb) FetchEvents(ctx context.Context, filters models.EventFilters) ([]models.NormalizedEvent, error) {
	text, err := m.readPage(ctx, m.buildURL(filters))
	if err != nil {
		return nil, scraperFetchError(SourceMeetupWeb, err)
	}

	scraped := parseMarkdownEvents(text, isMeetupEventURL)
	return normalizeScraped(SourceMeetupWeb, scraped, time.Now(), filters.Limit), nil
}

// buildURL constructs the find page URL from filters.
func (m *MeetupWeb) buildURL(filters models.EventFilters) string {
	q := url.Values{}
	q.Set("source", "EVENTS")
	if filters.Query != "" {
		q.Set("keywords", filters.Query)
	} else if filters.Category != "" {
		q.Set("keywords", filters.Category)
	}
	return "https://www.meetup.com/find/?" + q.Encode()
}

// isMeetupEventURL matches event detail links on the find page.
func isMeetupEventURL(u string) bool {
	return strings.Contains(u, "meetup.com/") && strings.Contains(u, "/events/")
}
