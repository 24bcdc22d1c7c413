// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

// Package models defines the shared data model for Conventus: normalized
// events produced by source plugins, persisted events, user preferences and
// interactions, recommendations, and plugin reliability state.
package models

import "time"

// Location describes where an event takes place. Coordinates are optional;
// virtual events carry no coordinates and set Virtual.
type Location struct {
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Virtual   bool     `json:"virtual"`
}

// NormalizedEvent is the platform-agnostic event representation every plugin
// must produce. It is immutable once emitted and uniquely identified by
// (Source, ExternalID) for upsert deduplication.
type NormalizedEvent struct {
	Source      string    `json:"source"`
	ExternalID  string    `json:"external_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time,omitempty"`
	Location    Location  `json:"location"`
	Category    string    `json:"category,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

// Event is a persisted NormalizedEvent. Rows are unique on
// (SourceID, ExternalID); re-ingestion updates fields rather than
// duplicating rows.
type Event struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"source_id"`
	ExternalID  string    `json:"external_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time,omitempty"`
	Location    Location  `json:"location"`
	Category    string    `json:"category,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EventSource is a catalog row describing a known source platform. Plugins
// enabled in configuration but absent from the catalog are skipped with a
// warning during full ingestion runs.
type EventSource struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// EventFilters narrows a plugin fetch. All fields are optional.
type EventFilters struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	RadiusKm  float64  `json:"radius_km,omitempty"`
	Category  string   `json:"category,omitempty"`
	Query     string   `json:"query,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}
