// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package plugin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/conventus/internal/config"
	"github.com/tomtom215/conventus/internal/models"
)

// eventbriteMaxPages bounds pagination for one fetch.
const eventbriteMaxPages = 10

// Eventbrite fetches events from the Eventbrite REST API using an OAuth
// token. The platform enforces an hourly quota and exposes live
// X-RateLimit headers, which override the local estimate after each call.
type Eventbrite struct {
	cfg     config.APISourceConfig
	fetcher *Fetcher
}

// NewEventbrite creates the Eventbrite plugin.
func NewEventbrite(cfg config.APISourceConfig, fcfg FetcherConfig) *Eventbrite {
	fcfg.Source = SourceEventbrite
	if fcfg.RateLimit == 0 {
		fcfg.RateLimit = 1000 // Eventbrite default hourly quota
	}
	if fcfg.RateWindow == 0 {
		fcfg.RateWindow = time.Hour
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.eventbriteapi.com/v3"
	}
	return &Eventbrite{cfg: cfg, fetcher: NewFetcher(fcfg)}
}

// Source returns the platform tag.
func (e *Eventbrite) Source() string { return SourceEventbrite }

// Enabled reports the configuration flag.
func (e *Eventbrite) Enabled() bool { return e.cfg.Enabled }

// ValidateConfig requires the plugin to be enabled with a token present.
func (e *Eventbrite) ValidateConfig() bool {
	return e.cfg.Enabled && e.cfg.Token != ""
}

// RateLimitStatus returns a snapshot of the throttle state.
func (e *Eventbrite) RateLimitStatus() models.RateLimitStatus {
	return e.fetcher.RateLimitStatus()
}

// HealthCheck probes the authenticated /users/me/ endpoint.
func (e *Eventbrite) HealthCheck(ctx context.Context) models.HealthStatus {
	return e.fetcher.Probe(ctx, func(ctx context.Context) (*http.Request, error) {
		return e.newRequest(ctx, "/users/me/", nil)
	})
}

// eventbriteResponse is the /events/search/ payload shape.
type eventbriteResponse struct {
	Events     []eventbriteEvent `json:"events"`
	Pagination struct {
		PageNumber   int  `json:"page_number"`
		PageCount    int  `json:"page_count"`
		HasMoreItems bool `json:"has_more_items"`
	} `json:"pagination"`
}

type eventbriteEvent struct {
	ID   string `json:"id"`
	Name struct {
		Text string `json:"text"`
	} `json:"name"`
	Description struct {
		Text string `json:"text"`
	} `json:"description"`
	URL   string `json:"url"`
	Start struct {
		UTC string `json:"utc"`
	} `json:"start"`
	End struct {
		UTC string `json:"utc"`
	} `json:"end"`
	Logo *struct {
		URL string `json:"url"`
	} `json:"logo"`
	OnlineEvent bool `json:"online_event"`
	Venue       *struct {
		Name      string `json:"name"`
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"venue"`
	Category *struct {
		Name string `json:"name"`
	} `json:"category"`
}

// FetchEvents pages through /events/search/ sequentially; each page's
// offset depends on the previous response.
func (e *Eventbrite) FetchEvents(ctx context.Context, filters models.EventFilters) ([]models.NormalizedEvent, error) {
	var out []models.NormalizedEvent

	for page := 1; page <= eventbriteMaxPages; page++ {
		var resp eventbriteResponse
		q := e.searchQuery(filters, page)
		err := e.fetcher.GetJSON(ctx, func(ctx context.Context) (*http.Request, error) {
			return e.newRequest(ctx, "/events/search/", q)
		}, &resp)
		if err != nil {
			return nil, err
		}

		for i := range resp.Events {
			out = append(out, e.normalize(&resp.Events[i]))
			if filters.Limit > 0 && len(out) >= filters.Limit {
				return out, nil
			}
		}

		if !resp.Pagination.HasMoreItems {
			break
		}
	}

	return out, nil
}

// searchQuery builds search parameters from filters.
func (e *Eventbrite) searchQuery(filters models.EventFilters, page int) url.Values {
	q := url.Values{}
	q.Set("expand", "venue,logo,category")
	q.Set("page", strconv.Itoa(page))
	if filters.Query != "" {
		q.Set("q", filters.Query)
	}
	if filters.Category != "" {
		q.Set("categories", filters.Category)
	}
	if filters.Latitude != nil && filters.Longitude != nil {
		q.Set("location.latitude", strconv.FormatFloat(*filters.Latitude, 'f', 6, 64))
		q.Set("location.longitude", strconv.FormatFloat(*filters.Longitude, 'f', 6, 64))
		radius := filters.RadiusKm
		if radius <= 0 {
			radius = 25
		}
		q.Set("location.within", fmt.Sprintf("%.0fkm", radius))
	}
	return q
}

// newRequest builds an authenticated API request.
func (e *Eventbrite) newRequest(ctx context.Context, path string, q url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.BaseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.cfg.Token)
	req.Header.Set("Accept", "application/json")
	if len(q) > 0 {
		req.URL.RawQuery = q.Encode()
	}
	return req, nil
}

// normalize converts an API event into the platform-agnostic shape.
func (e *Eventbrite) normalize(ev *eventbriteEvent) models.NormalizedEvent {
	out := models.NormalizedEvent{
		Source:      SourceEventbrite,
		ExternalID:  ev.ID,
		Title:       ev.Name.Text,
		Description: ev.Description.Text,
		URL:         ev.URL,
		Location: models.Location{
			Virtual: ev.OnlineEvent,
		},
	}

	if t, err := time.Parse(time.RFC3339, ev.Start.UTC); err == nil {
		out.StartTime = t
	}
	if t, err := time.Parse(time.RFC3339, ev.End.UTC); err == nil {
		out.EndTime = t
	}
	if ev.Logo != nil {
		out.ImageURL = ev.Logo.URL
	}
	if ev.Category != nil {
		out.Category = ev.Category.Name
	}
	if ev.Venue != nil {
		out.Location.Name = ev.Venue.Name
		if lat, err := strconv.ParseFloat(ev.Venue.Latitude, 64); err == nil {
			if lng, err := strconv.ParseFloat(ev.Venue.Longitude, 64); err == nil {
				out.Location.Latitude = &lat
				out.Location.Longitude = &lng
			}
		}
	}

	return out
}
