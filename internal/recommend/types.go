// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

// Package recommend implements the recommendation engine: content-based,
// collaborative and hybrid scoring over persisted events, with generated
// scores cached as recommendation rows for seven days.
package recommend

import (
	"context"
	"time"

	"github.com/tomtom215/conventus/internal/models"
)

// Algorithm selects a scoring strategy.
type Algorithm string

// Scoring algorithms.
const (
	AlgorithmContent       Algorithm = "content-based"
	AlgorithmCollaborative Algorithm = "collaborative"
	AlgorithmHybrid        Algorithm = "hybrid"
)

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	switch a {
	case AlgorithmContent, AlgorithmCollaborative, AlgorithmHybrid:
		return true
	default:
		return false
	}
}

// Request asks for recommendations for one user.
type Request struct {
	UserID       string
	Algorithm    Algorithm
	Limit        int
	ForceRefresh bool
}

// Store is the persistence surface the engine needs.
type Store interface {
	UpcomingEvents(ctx context.Context, now time.Time, limit int) ([]models.Event, error)
	Preference(ctx context.Context, userID string) (*models.UserPreference, error)
	InteractionsByUser(ctx context.Context, userID string) ([]models.UserInteraction, error)
	InteractionsForEvents(ctx context.Context, eventIDs []string) ([]models.UserInteraction, error)
	InteractionsByUsers(ctx context.Context, userIDs []string) ([]models.UserInteraction, error)
	InsertInteraction(ctx context.Context, in *models.UserInteraction) error
	UpsertRecommendations(ctx context.Context, recs []models.Recommendation) error
	ActiveRecommendations(ctx context.Context, userID string, now time.Time, limit int) ([]models.Recommendation, error)
	DeleteRecommendations(ctx context.Context, userID string) error
}

// scored is one candidate with its computed score. Slices of scored keep
// candidate-generation order for ties; sorting is always stable.
type scored struct {
	EventID   string
	Score     float64
	Reason    string
	Algorithm Algorithm
}
