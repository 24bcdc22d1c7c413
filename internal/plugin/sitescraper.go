// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package plugin

import (
	"context"
	"strings"
	"time"

	"github.com/tomtom215/conventus/internal/config"
	"github.com/tomtom215/conventus/internal/models"
)

// eventPathHints mark URLs that plausibly point at event detail pages on
// arbitrary sites.
var eventPathHints = []string{"/event", "/events/", "/calendar/", "/whats-on/"}

// SiteScraper reads a configured list of arbitrary event listing pages
// through the reader proxy. It is the catch-all for venues and communities
// without a platform API.
type SiteScraper struct {
	scraperCore
}

// NewSiteScraper creates the generic site scraper plugin.
func NewSiteScraper(cfg config.ScraperSourceConfig, fcfg FetcherConfig, pages PageCache) *SiteScraper {
	return &SiteScraper{scraperCore: newScraperCore(SourceSiteScraper, cfg, fcfg, pages)}
}

// Source returns the platform tag.
func (s *SiteScraper) Source() string { return SourceSiteScraper }

// Enabled reports the configuration flag.
func (s *SiteScraper) Enabled() bool { return s.cfg.Enabled }

// ValidateConfig requires the enabled flag and at least one configured
// site.
func (s *SiteScraper) ValidateConfig() bool {
	return s.cfg.Enabled && len(s.cfg.Sites) > 0
}

// RateLimitStatus returns a snapshot of the throttle state.
func (s *SiteScraper) RateLimitStatus() models.RateLimitStatus {
	return s.fetcher.RateLimitStatus()
}

// HealthCheck probes the reader proxy against the first configured site.
func (s *SiteScraper) HealthCheck(ctx context.Context) models.HealthStatus {
	if len(s.cfg.Sites) == 0 {
		return models.HealthStatus{
			CheckedAt: time.Now(),
			LastError: "no sites configured",
		}
	}
	return s.probeReader(ctx, s.cfg.Sites[0])
}

// FetchEvents reads every configured site sequentially, accumulating
// parsed events until the filter limit is reached.
func (s *SiteScraper) FetchEvents(ctx context.Context, filters models.EventFilters) ([]models.NormalizedEvent, error) {
	var out []models.NormalizedEvent

	for _, site := range s.cfg.Sites {
		text, err := s.readPage(ctx, site)
		if err != nil {
			return nil, scraperFetchError(SourceSiteScraper, err)
		}

		scraped := parseMarkdownEvents(text, looksLikeEventURL)
		remaining := 0
		if filters.Limit > 0 {
			remaining = filters.Limit - len(out)
			if remaining <= 0 {
				break
			}
		}
		out = append(out, normalizeScraped(SourceSiteScraper, scraped, time.Now(), remaining)...)
	}

	return out, nil
}

// looksLikeEventURL applies generic event-path heuristics.
func looksLikeEventURL(u string) bool {
	lower := strings.ToLower(u)
	for _, hint := range eventPathHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
