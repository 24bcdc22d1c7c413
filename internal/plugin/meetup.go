// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package plugin

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/conventus/internal/config"
	"github.com/tomtom215/conventus/internal/models"
)

// meetupMaxPages bounds cursor pagination for one fetch.
const meetupMaxPages = 10

// meetupSearchQuery is the GraphQL document for keyword event search.
const meetupSearchQuery = `
query ($filter: SearchConnectionFilter!, $first: Int, $after: String) {
  keywordSearch(filter: $filter, first: $first, after: $after) {
    pageInfo { hasNextPage endCursor }
    edges {
      node {
        result {
          ... on Event {
            id
            title
            description
            eventUrl
            imageUrl
            dateTime
            endTime
            isOnline
            venue { name lat lng }
            topics: group { name }
          }
        }
      }
    }
  }
}`

// Meetup fetches events from the Meetup GraphQL API using an OAuth token.
// Meetup publishes X-RateLimit headers on every response; the local counter
// is overridden from them after each call.
type Meetup struct {
	cfg     config.APISourceConfig
	fetcher *Fetcher
}

// NewMeetup creates the Meetup plugin.
func NewMeetup(cfg config.APISourceConfig, fcfg FetcherConfig) *Meetup {
	fcfg.Source = SourceMeetup
	if fcfg.RateLimit == 0 {
		fcfg.RateLimit = 500 // Meetup points budget per 60s window
	}
	if fcfg.RateWindow == 0 {
		fcfg.RateWindow = time.Minute
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.meetup.com/gql"
	}
	return &Meetup{cfg: cfg, fetcher: NewFetcher(fcfg)}
}

// Source returns the platform tag.
func (m *Meetup) Source() string { return SourceMeetup }

// Enabled reports the configuration flag.
func (m *Meetup) Enabled() bool { return m.cfg.Enabled }

// ValidateConfig requires the plugin to be enabled with a token present.
func (m *Meetup) ValidateConfig() bool {
	return m.cfg.Enabled && m.cfg.Token != ""
}

// RateLimitStatus returns a snapshot of the throttle state.
func (m *Meetup) RateLimitStatus() models.RateLimitStatus {
	return m.fetcher.RateLimitStatus()
}

// HealthCheck probes the API with a minimal self query.
func (m *Meetup) HealthCheck(ctx context.Context) models.HealthStatus {
	return m.fetcher.Probe(ctx, func(ctx context.Context) (*http.Request, error) {
		return m.newRequest(ctx, `{"query":"query { self { id } }"}`)
	})
}

// meetupResponse is the GraphQL search payload shape.
type meetupResponse struct {
	Data struct {
		KeywordSearch struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Edges []struct {
				Node struct {
					Result meetupEvent `json:"result"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"keywordSearch"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type meetupEvent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	EventURL    string `json:"eventUrl"`
	ImageURL    string `json:"imageUrl"`
	DateTime    string `json:"dateTime"`
	EndTime     string `json:"endTime"`
	IsOnline    bool   `json:"isOnline"`
	Venue       *struct {
		Name string  `json:"name"`
		Lat  float64 `json:"lat"`
		Lng  float64 `json:"lng"`
	} `json:"venue"`
	Group *struct {
		Name string `json:"name"`
	} `json:"topics"`
}

// FetchEvents pages through keyword search with sequential cursors.
func (m *Meetup) FetchEvents(ctx context.Context, filters models.EventFilters) ([]models.NormalizedEvent, error) {
	var out []models.NormalizedEvent
	after := ""

	for page := 0; page < meetupMaxPages; page++ {
		body, err := m.searchBody(filters, after)
		if err != nil {
			return nil, NewError(SourceMeetup, KindUnknown, err)
		}

		var resp meetupResponse
		err = m.fetcher.GetJSON(ctx, func(ctx context.Context) (*http.Request, error) {
			return m.newRequest(ctx, body)
		}, &resp)
		if err != nil {
			return nil, err
		}

		if len(resp.Errors) > 0 {
			err := fmt.Errorf("graphql error: %s", resp.Errors[0].Message)
			return nil, NewError(SourceMeetup, Classify(err), err)
		}

		for i := range resp.Data.KeywordSearch.Edges {
			ev := &resp.Data.KeywordSearch.Edges[i].Node.Result
			if ev.ID == "" {
				continue
			}
			out = append(out, m.normalize(ev))
			if filters.Limit > 0 && len(out) >= filters.Limit {
				return out, nil
			}
		}

		info := resp.Data.KeywordSearch.PageInfo
		if !info.HasNextPage || info.EndCursor == "" {
			break
		}
		after = info.EndCursor
	}

	return out, nil
}

// searchBody builds the GraphQL request body from filters.
func (m *Meetup) searchBody(filters models.EventFilters, after string) (string, error) {
	filter := map[string]interface{}{
		"source": "EVENTS",
	}
	if filters.Query != "" {
		filter["query"] = filters.Query
	}
	if filters.Category != "" {
		filter["query"] = filters.Category
	}
	if filters.Latitude != nil && filters.Longitude != nil {
		filter["lat"] = *filters.Latitude
		filter["lon"] = *filters.Longitude
		radius := filters.RadiusKm
		if radius <= 0 {
			radius = 25
		}
		filter["radius"] = radius
	}

	variables := map[string]interface{}{
		"filter": filter,
		"first":  50,
	}
	if after != "" {
		variables["after"] = after
	}

	payload, err := json.Marshal(map[string]interface{}{
		"query":     meetupSearchQuery,
		"variables": variables,
	})
	if err != nil {
		return "", fmt.Errorf("marshal graphql body: %w", err)
	}
	return string(payload), nil
}

// newRequest builds an authenticated GraphQL POST.
func (m *Meetup) newRequest(ctx context.Context, body string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL, bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// normalize converts a GraphQL event into the platform-agnostic shape.
func (m *Meetup) normalize(ev *meetupEvent) models.NormalizedEvent {
	out := models.NormalizedEvent{
		Source:      SourceMeetup,
		ExternalID:  ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		URL:         ev.EventURL,
		ImageURL:    ev.ImageURL,
		Location: models.Location{
			Virtual: ev.IsOnline,
		},
	}

	if t, err := time.Parse(time.RFC3339, ev.DateTime); err == nil {
		out.StartTime = t
	}
	if t, err := time.Parse(time.RFC3339, ev.EndTime); err == nil {
		out.EndTime = t
	}
	if ev.Venue != nil {
		out.Location.Name = ev.Venue.Name
		if ev.Venue.Lat != 0 || ev.Venue.Lng != 0 {
			lat, lng := ev.Venue.Lat, ev.Venue.Lng
			out.Location.Latitude = &lat
			out.Location.Longitude = &lng
		}
	}
	if ev.Group != nil && ev.Group.Name != "" {
		out.Tags = []string{ev.Group.Name}
	}

	return out
}
