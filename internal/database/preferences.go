// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/conventus/internal/models"
)

// ErrNotFound marks a lookup for a row that does not exist.
var ErrNotFound = models.ErrNotFound

// Preference returns the stored preferences for userID, or ErrNotFound.
func (db *DB) Preference(ctx context.Context, userID string) (*models.UserPreference, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT user_id, interests, latitude, longitude, radius_km,
		       preferred_days, preferred_times, updated_at
		FROM user_preferences WHERE user_id = ?`, userID)

	var (
		p                     models.UserPreference
		interests, days, tms  string
		lat, lng              sql.NullFloat64
	)
	err := row.Scan(&p.UserID, &interests, &lat, &lng, &p.RadiusKm, &days, &tms, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: preferences for user %s", ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}

	if lat.Valid && lng.Valid {
		p.Latitude = &lat.Float64
		p.Longitude = &lng.Float64
	}
	if err := json.Unmarshal([]byte(interests), &p.Interests); err != nil {
		return nil, fmt.Errorf("unmarshal interests: %w", err)
	}
	if err := json.Unmarshal([]byte(days), &p.PreferredDays); err != nil {
		return nil, fmt.Errorf("unmarshal preferred days: %w", err)
	}
	if err := json.Unmarshal([]byte(tms), &p.PreferredTimes); err != nil {
		return nil, fmt.Errorf("unmarshal preferred times: %w", err)
	}
	return &p, nil
}

// UpsertPreference writes a user's preferences, replacing any existing row.
func (db *DB) UpsertPreference(ctx context.Context, p *models.UserPreference) error {
	interests, err := json.Marshal(nonNilStrings(p.Interests))
	if err != nil {
		return fmt.Errorf("marshal interests: %w", err)
	}
	days, err := json.Marshal(nonNilStrings(p.PreferredDays))
	if err != nil {
		return fmt.Errorf("marshal preferred days: %w", err)
	}
	tms, err := json.Marshal(nonNilStrings(p.PreferredTimes))
	if err != nil {
		return fmt.Errorf("marshal preferred times: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO user_preferences (
			user_id, interests, latitude, longitude, radius_km,
			preferred_days, preferred_times, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			interests = excluded.interests,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			radius_km = excluded.radius_km,
			preferred_days = excluded.preferred_days,
			preferred_times = excluded.preferred_times,
			updated_at = excluded.updated_at`,
		p.UserID, string(interests), p.Latitude, p.Longitude, p.RadiusKm,
		string(days), string(tms), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert preferences for %s: %w", p.UserID, err)
	}
	return nil
}
