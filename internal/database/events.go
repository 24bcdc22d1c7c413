// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/conventus/internal/models"
)

const upsertEventSQL = `
INSERT INTO events (
	id, source_id, external_id, title, description, url, image_url,
	start_time, end_time, location_name, latitude, longitude, virtual,
	category, tags, fetched_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (source_id, external_id) DO UPDATE SET
	title = excluded.title,
	description = excluded.description,
	url = excluded.url,
	image_url = excluded.image_url,
	start_time = excluded.start_time,
	end_time = excluded.end_time,
	location_name = excluded.location_name,
	latitude = excluded.latitude,
	longitude = excluded.longitude,
	virtual = excluded.virtual,
	category = excluded.category,
	tags = excluded.tags,
	fetched_at = excluded.fetched_at,
	updated_at = excluded.updated_at;`

const selectEventColumns = `
	id, source_id, external_id, title, description, url, image_url,
	start_time, end_time, location_name, latitude, longitude, virtual,
	category, tags, fetched_at, updated_at`

// UpsertEvents writes one batch of events in a single transaction. Rows are
// keyed (source_id, external_id); re-ingested events update in place.
// Returns the number of rows written.
func (db *DB) UpsertEvents(ctx context.Context, events []models.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertEventSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for i := range events {
		ev := &events[i]
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}

		tags, err := json.Marshal(nonNilStrings(ev.Tags))
		if err != nil {
			return written, fmt.Errorf("marshal tags for %s/%s: %w", ev.SourceID, ev.ExternalID, err)
		}

		var endTime interface{}
		if !ev.EndTime.IsZero() {
			endTime = ev.EndTime
		}

		_, err = stmt.ExecContext(ctx,
			ev.ID, ev.SourceID, ev.ExternalID, ev.Title, ev.Description,
			ev.URL, ev.ImageURL, ev.StartTime, endTime,
			ev.Location.Name, ev.Location.Latitude, ev.Location.Longitude, ev.Location.Virtual,
			ev.Category, string(tags), ev.FetchedAt, ev.UpdatedAt)
		if err != nil {
			return written, fmt.Errorf("upsert event %s/%s: %w", ev.SourceID, ev.ExternalID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert transaction: %w", err)
	}
	return written, nil
}

// UpcomingEvents returns events starting at or after now, soonest first.
func (db *DB) UpcomingEvents(ctx context.Context, now time.Time, limit int) ([]models.Event, error) {
	query := `SELECT` + selectEventColumns + `
		FROM events WHERE start_time >= ? ORDER BY start_time ASC`
	args := []interface{}{now}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query upcoming events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// EventsByIDs returns the events for the given ids; missing ids are
// silently absent from the result.
func (db *DB) EventsByIDs(ctx context.Context, ids []string) (map[string]models.Event, error) {
	out := make(map[string]models.Event, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT` + selectEventColumns + ` FROM events WHERE id IN (`
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		args[i] = id
	}
	query += ")"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events by id: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		out[ev.ID] = ev
	}
	return out, nil
}

// scanEvents drains an event rowset.
func scanEvents(rows *sql.Rows) ([]models.Event, error) {
	var out []models.Event
	for rows.Next() {
		var (
			ev       models.Event
			endTime  sql.NullTime
			lat, lng sql.NullFloat64
			tags     string
		)
		err := rows.Scan(
			&ev.ID, &ev.SourceID, &ev.ExternalID, &ev.Title, &ev.Description,
			&ev.URL, &ev.ImageURL, &ev.StartTime, &endTime,
			&ev.Location.Name, &lat, &lng, &ev.Location.Virtual,
			&ev.Category, &tags, &ev.FetchedAt, &ev.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		if endTime.Valid {
			ev.EndTime = endTime.Time
		}
		if lat.Valid && lng.Valid {
			ev.Location.Latitude = &lat.Float64
			ev.Location.Longitude = &lng.Float64
		}
		if err := json.Unmarshal([]byte(tags), &ev.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags for event %s: %w", ev.ID, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ActiveSources returns the catalog rows with active = true.
func (db *DB) ActiveSources(ctx context.Context) ([]models.EventSource, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, active FROM event_sources WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query active sources: %w", err)
	}
	defer rows.Close()

	var out []models.EventSource
	for rows.Next() {
		var s models.EventSource
		if err := rows.Scan(&s.ID, &s.Name, &s.Active); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SeedSources upserts the source catalog. Called at startup with the
// sources known to the build; active flags of existing rows are preserved
// so operators can disable a source without a config change.
func (db *DB) SeedSources(ctx context.Context, sources []models.EventSource) error {
	for _, s := range sources {
		_, err := db.conn.ExecContext(ctx,
			`INSERT INTO event_sources (id, name, active) VALUES (?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
			s.ID, s.Name, s.Active)
		if err != nil {
			return fmt.Errorf("seed source %s: %w", s.ID, err)
		}
	}
	return nil
}

// nonNilStrings normalizes a nil slice to an empty one so JSON columns
// always hold arrays.
func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
