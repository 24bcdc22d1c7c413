// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package database

import "fmt"

// initialSchema holds the full baseline schema. All tables are created in
// one pass on first start; incremental changes go through migrations.go.
//
// List-valued fields (tags, interests, preferred days/times) and interaction
// metadata are stored as JSON text so the schema stays portable across
// DuckDB versions.
var initialSchema = []string{
	`CREATE TABLE IF NOT EXISTS event_sources (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT true
	);`,

	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		external_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ,
		location_name TEXT NOT NULL DEFAULT '',
		latitude DOUBLE,
		longitude DOUBLE,
		virtual BOOLEAN NOT NULL DEFAULT false,
		category TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		fetched_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (source_id, external_id)
	);`,

	`CREATE TABLE IF NOT EXISTS user_preferences (
		user_id TEXT PRIMARY KEY,
		interests TEXT NOT NULL DEFAULT '[]',
		latitude DOUBLE,
		longitude DOUBLE,
		radius_km DOUBLE NOT NULL DEFAULT 0,
		preferred_days TEXT NOT NULL DEFAULT '[]',
		preferred_times TEXT NOT NULL DEFAULT '[]',
		updated_at TIMESTAMPTZ NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS user_interactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		event_id TEXT NOT NULL,
		interaction_type TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS recommendations (
		user_id TEXT NOT NULL,
		event_id TEXT NOT NULL,
		score DOUBLE NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		algorithm TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, event_id)
	);`,

	`CREATE INDEX IF NOT EXISTS idx_events_start_time ON events (start_time);`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_user ON user_interactions (user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_event ON user_interactions (event_id);`,
	`CREATE INDEX IF NOT EXISTS idx_recommendations_user ON recommendations (user_id, expires_at);`,
}

// ensureSchema creates the baseline schema.
func (db *DB) ensureSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, stmt := range initialSchema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}
