// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/conventus/internal/models"
)

// UpsertRecommendations writes one user's generated recommendation rows in
// a single transaction, replacing stale scores for the same (user, event)
// pairs.
func (db *DB) UpsertRecommendations(ctx context.Context, recs []models.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recommendation transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO recommendations (user_id, event_id, score, reason, algorithm, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, event_id) DO UPDATE SET
			score = excluded.score,
			reason = excluded.reason,
			algorithm = excluded.algorithm,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`)
	if err != nil {
		return fmt.Errorf("prepare recommendation upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		_, err := stmt.ExecContext(ctx,
			r.UserID, r.EventID, r.Score, r.Reason, r.Algorithm, r.CreatedAt, r.ExpiresAt)
		if err != nil {
			return fmt.Errorf("upsert recommendation %s/%s: %w", r.UserID, r.EventID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recommendation transaction: %w", err)
	}
	return nil
}

// ActiveRecommendations returns a user's unexpired recommendations ordered
// by score descending.
func (db *DB) ActiveRecommendations(ctx context.Context, userID string, now time.Time, limit int) ([]models.Recommendation, error) {
	query := `
		SELECT user_id, event_id, score, reason, algorithm, created_at, expires_at
		FROM recommendations
		WHERE user_id = ? AND expires_at > ?
		ORDER BY score DESC`
	args := []interface{}{userID, now}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recommendations for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []models.Recommendation
	for rows.Next() {
		var r models.Recommendation
		err := rows.Scan(&r.UserID, &r.EventID, &r.Score, &r.Reason, &r.Algorithm, &r.CreatedAt, &r.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRecommendations removes all of one user's recommendation rows.
func (db *DB) DeleteRecommendations(ctx context.Context, userID string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM recommendations WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete recommendations for %s: %w", userID, err)
	}
	return nil
}

// DeleteExpiredRecommendations purges rows past their validity horizon.
// Reads already filter on expires_at; this is housekeeping to keep the
// table small.
func (db *DB) DeleteExpiredRecommendations(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM recommendations WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired recommendations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count purged recommendations: %w", err)
	}
	return n, nil
}
