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

// lumaNonEventSlugs are lu.ma paths that are navigation, not events.
var lumaNonEventSlugs = map[string]struct{}{
	"discover": {}, "signin": {}, "create": {}, "pricing": {}, "explore": {},
}

// LumaWeb scrapes lu.ma discovery pages through the reader proxy.
type LumaWeb struct {
	scraperCore
}

// NewLumaWeb creates the Luma web scraper plugin.
func NewLumaWeb(cfg config.ScraperSourceConfig, fcfg FetcherConfig, pages PageCache) *LumaWeb {
	return &LumaWeb{scraperCore: newScraperCore(SourceLumaWeb, cfg, fcfg, pages)}
}

// Source returns the platform tag.
func (l *LumaWeb) Source() string { return SourceLumaWeb }

// Enabled reports the configuration flag.
func (l *LumaWeb) Enabled() bool { return l.cfg.Enabled }

// ValidateConfig requires only the enabled flag.
func (l *LumaWeb) ValidateConfig() bool { return l.cfg.Enabled }

// RateLimitStatus returns a snapshot of the throttle state.
func (l *LumaWeb) RateLimitStatus() models.RateLimitStatus {
	return l.fetcher.RateLimitStatus()
}

// HealthCheck probes the reader proxy against the discover page.
func (l *LumaWeb) HealthCheck(ctx context.Context) models.HealthStatus {
	return l.probeReader(ctx, "https://lu.ma/discover")
}

// FetchEvents reads the discover page (or a configured city page) and
// parses event links.
func (l *LumaWeb) FetchEvents(ctx context.Context, filters models.EventFilters) ([]models.NormalizedEvent, error) {
	var out []models.NormalizedEvent

	for _, target := range l.targets() {
		text, err := l.readPage(ctx, target)
		if err != nil {
			return nil, scraperFetchError(SourceLumaWeb, err)
		}

		scraped := parseMarkdownEvents(text, isLumaEventURL)
		remaining := 0
		if filters.Limit > 0 {
			remaining = filters.Limit - len(out)
			if remaining <= 0 {
				break
			}
		}
		out = append(out, normalizeScraped(SourceLumaWeb, scraped, time.Now(), remaining)...)
	}

	return out, nil
}

// targets returns the pages to scrape: configured city pages or the
// global discover page.
func (l *LumaWeb) targets() []string {
	if len(l.cfg.Sites) > 0 {
		return l.cfg.Sites
	}
	return []string{"https://lu.ma/discover"}
}

// isLumaEventURL matches event detail links: a lu.ma path with a single
// opaque slug segment.
func isLumaEventURL(u string) bool {
	if !strings.Contains(u, "lu.ma/") {
		return false
	}
	slug := externalIDFromURL(u)
	if slug == "" || strings.Contains(slug, ".") {
		return false
	}
	_, nav := lumaNonEventSlugs[strings.ToLower(slug)]
	return !nav
}
