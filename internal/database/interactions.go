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

const selectInteractionColumns = `id, user_id, event_id, interaction_type, metadata, created_at`

// InsertInteraction appends one interaction log row. ID and CreatedAt are
// assigned when absent.
func (db *DB) InsertInteraction(ctx context.Context, in *models.UserInteraction) error {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}

	meta := in.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	metadata, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal interaction metadata: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO user_interactions (id, user_id, event_id, interaction_type, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.EventID, string(in.Type), string(metadata), in.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

// InteractionsByUser returns one user's full interaction history, newest
// first.
func (db *DB) InteractionsByUser(ctx context.Context, userID string) ([]models.UserInteraction, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+selectInteractionColumns+` FROM user_interactions
		 WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query interactions for user %s: %w", userID, err)
	}
	defer rows.Close()

	return scanInteractions(rows)
}

// InteractionsForEvents returns every interaction touching the given
// events. Used by collaborative filtering to find users who engaged with
// the same events.
func (db *DB) InteractionsForEvents(ctx context.Context, eventIDs []string) ([]models.UserInteraction, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}

	query, args := inQuery(
		`SELECT `+selectInteractionColumns+` FROM user_interactions WHERE event_id IN `, eventIDs)
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query interactions for events: %w", err)
	}
	defer rows.Close()

	return scanInteractions(rows)
}

// InteractionsByUsers returns every interaction by the given users.
func (db *DB) InteractionsByUsers(ctx context.Context, userIDs []string) ([]models.UserInteraction, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query, args := inQuery(
		`SELECT `+selectInteractionColumns+` FROM user_interactions WHERE user_id IN `, userIDs)
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query interactions by users: %w", err)
	}
	defer rows.Close()

	return scanInteractions(rows)
}

// scanInteractions drains an interaction rowset.
func scanInteractions(rows *sql.Rows) ([]models.UserInteraction, error) {
	var out []models.UserInteraction
	for rows.Next() {
		var (
			in       models.UserInteraction
			itype    string
			metadata string
		)
		if err := rows.Scan(&in.ID, &in.UserID, &in.EventID, &itype, &metadata, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction row: %w", err)
		}
		in.Type = models.InteractionType(itype)
		if err := json.Unmarshal([]byte(metadata), &in.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal interaction metadata: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// inQuery expands an IN clause with one placeholder per value.
func inQuery(prefix string, values []string) (string, []interface{}) {
	query := prefix + "("
	args := make([]interface{}, len(values))
	for i, v := range values {
		if i > 0 {
			query += ","
		}
		query += "?"
		args[i] = v
	}
	return query + ")", args
}
