// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package plugin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/conventus/internal/config"
	"github.com/tomtom215/conventus/internal/models"
)

// PageCache caches reader-proxy responses so unchanged listing pages are
// not refetched within one ingestion window. A nil PageCache disables
// caching.
type PageCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string) error
}

// scraperCore is the shared machinery of the web-reader scraper plugins:
// politeness-limited page fetching through a reader proxy that converts
// pages to markdown text, plus cached responses.
type scraperCore struct {
	source  string
	cfg     config.ScraperSourceConfig
	fetcher *Fetcher
	limiter *rate.Limiter
	pages   PageCache
}

// newScraperCore builds the shared scraper state. Scrapers default to a
// conservative local budget since the target sites publish no rate-limit
// contract.
func newScraperCore(source string, cfg config.ScraperSourceConfig, fcfg FetcherConfig, pages PageCache) scraperCore {
	fcfg.Source = source
	if fcfg.RateLimit == 0 {
		fcfg.RateLimit = 60
	}
	if fcfg.RateWindow == 0 {
		fcfg.RateWindow = time.Hour
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 0.5
	}

	return scraperCore{
		source:  source,
		cfg:     cfg,
		fetcher: NewFetcher(fcfg),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		pages:   pages,
	}
}

// readPage fetches one page's text through the reader proxy, consulting the
// page cache first.
func (s *scraperCore) readPage(ctx context.Context, target string) (string, error) {
	if s.pages != nil {
		if text, ok := s.pages.Get(ctx, s.source+":"+target); ok {
			return text, nil
		}
	}

	// Politeness pacing is independent of the platform budget tracker.
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	readerURL := strings.TrimSuffix(s.cfg.ReaderURL, "/") + "/" + target
	text, err := s.fetcher.GetText(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, readerURL, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/plain")
		return req, nil
	})
	if err != nil {
		return "", err
	}

	if s.pages != nil {
		_ = s.pages.Set(ctx, s.source+":"+target, text)
	}
	return text, nil
}

// probeReader health-checks the reader proxy against a target page.
func (s *scraperCore) probeReader(ctx context.Context, target string) models.HealthStatus {
	readerURL := strings.TrimSuffix(s.cfg.ReaderURL, "/") + "/" + target
	return s.fetcher.Probe(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, readerURL, http.NoBody)
	})
}

// scrapedEvent is the platform-agnostic intermediate shape scrapers parse
// pages into before normalization.
type scrapedEvent struct {
	Title    string
	URL      string
	DateText string
	Location string
}

// markdownLink matches reader-proxy markdown links: [Title](https://...).
var markdownLink = regexp.MustCompile(`\[([^\]\n]+)\]\((https?://[^)\s]+)\)`)

// parseMarkdownEvents extracts event candidates from reader-proxy markdown.
// A line whose link matches isEventURL starts a candidate; up to the next
// few lines are scanned for free-text date and location context.
func parseMarkdownEvents(text string, isEventURL func(string) bool) []scrapedEvent {
	lines := strings.Split(text, "\n")
	var out []scrapedEvent
	seen := make(map[string]struct{})

	for i, line := range lines {
		for _, m := range markdownLink.FindAllStringSubmatch(line, -1) {
			title, url := cleanTitle(m[1]), m[2]
			if title == "" || !isEventURL(url) {
				continue
			}
			if _, dup := seen[url]; dup {
				continue
			}
			seen[url] = struct{}{}

			ev := scrapedEvent{Title: title, URL: url}
			// Date and venue context usually sits on the lines right
			// after the listing link.
			for j := i; j < len(lines) && j <= i+4; j++ {
				trimmed := strings.TrimSpace(lines[j])
				if trimmed == "" {
					continue
				}
				if ev.DateText == "" && looksLikeDate(trimmed) {
					ev.DateText = trimmed
				} else if ev.Location == "" && j > i && looksLikeVenue(trimmed) {
					ev.Location = trimmed
				}
			}
			out = append(out, ev)
		}
	}

	return out
}

// cleanTitle strips markdown image markers and surrounding noise.
func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "!")
	s = strings.Trim(s, "*_#")
	return strings.TrimSpace(s)
}

// looksLikeDate reports whether a line plausibly contains a date.
func looksLikeDate(line string) bool {
	lower := strings.ToLower(line)
	for name := range monthNames {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

// looksLikeVenue reports whether a line plausibly names a venue.
func looksLikeVenue(line string) bool {
	if strings.HasPrefix(line, "[") || strings.HasPrefix(line, "#") {
		return false
	}
	if looksLikeDate(line) {
		return false
	}
	// Listing pages interleave venue names with attendance counts and
	// prices; keep only short plain-text lines.
	return len(line) < 80 && !strings.ContainsAny(line, "$€£")
}

// externalIDFromURL derives a stable external id from the last meaningful
// path segment of an event URL.
func externalIDFromURL(url string) string {
	trimmed := strings.TrimSuffix(url, "/")
	if idx := strings.Index(trimmed, "?"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	return trimmed
}

// normalizeScraped converts the intermediate shape into NormalizedEvents,
// resolving free-text dates relative to now.
func normalizeScraped(source string, events []scrapedEvent, now time.Time, limit int) []models.NormalizedEvent {
	out := make([]models.NormalizedEvent, 0, len(events))
	for _, ev := range events {
		if limit > 0 && len(out) >= limit {
			break
		}
		id := externalIDFromURL(ev.URL)
		if id == "" {
			continue
		}
		out = append(out, models.NormalizedEvent{
			Source:     source,
			ExternalID: id,
			Title:      ev.Title,
			URL:        ev.URL,
			StartTime:  ParseEventTime(ev.DateText, now),
			Location: models.Location{
				Name: ev.Location,
			},
		})
	}
	return out
}

// scraperFetchError wraps a scraper failure with its source tag unless it
// is already classified.
func scraperFetchError(source string, err error) error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) {
		return err
	}
	return NewError(source, Classify(err), fmt.Errorf("scrape: %w", err))
}
