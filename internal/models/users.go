// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package models

import "time"

// UserPreference holds a user's stated interests and constraints. At most
// one record exists per user; writes use upsert semantics.
type UserPreference struct {
	UserID         string    `json:"user_id"`
	Interests      []string  `json:"interests,omitempty"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	RadiusKm       float64   `json:"radius_km,omitempty"`
	PreferredDays  []string  `json:"preferred_days,omitempty"`  // lowercase weekday names
	PreferredTimes []string  `json:"preferred_times,omitempty"` // morning, afternoon, evening
	UpdatedAt      time.Time `json:"updated_at"`
}

// InteractionType categorizes a user interaction with an event.
type InteractionType string

// Interaction types. Multiple rows per (user, event) are valid; they form a
// history, not a toggle. "Is bookmarked" is derived from the latest matching
// row, not a dedicated boolean.
const (
	InteractionView     InteractionType = "view"
	InteractionClick    InteractionType = "click"
	InteractionRSVP     InteractionType = "rsvp"
	InteractionHide     InteractionType = "hide"
	InteractionBookmark InteractionType = "bookmark"
)

// Valid reports whether t is a known interaction type.
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionView, InteractionClick, InteractionRSVP, InteractionHide, InteractionBookmark:
		return true
	default:
		return false
	}
}

// Positive reports whether t is a positive engagement signal used by
// collaborative filtering.
func (t InteractionType) Positive() bool {
	switch t {
	case InteractionBookmark, InteractionRSVP, InteractionClick:
		return true
	default:
		return false
	}
}

// UserInteraction is one append-only log row of a user acting on an event.
type UserInteraction struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	EventID   string            `json:"event_id"`
	Type      InteractionType   `json:"type"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// RecommendationTTL is the horizon after which recommendation rows are
// logically invalid even if not yet deleted.
const RecommendationTTL = 7 * 24 * time.Hour

// Recommendation is a scored, explainable event suggestion for one user.
// Rows are unique on (UserID, EventID); regeneration upserts over stale
// scores.
type Recommendation struct {
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	Score     float64   `json:"score"` // in [0,1]
	Reason    string    `json:"reason"`
	Algorithm string    `json:"algorithm"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the recommendation is past its validity horizon.
func (r Recommendation) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
