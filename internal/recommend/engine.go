// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/conventus/internal/config"
	"github.com/tomtom215/conventus/internal/ingest"
	"github.com/tomtom215/conventus/internal/logging"
	"github.com/tomtom215/conventus/internal/metrics"
	"github.com/tomtom215/conventus/internal/models"
)

// internalLimit expands the candidate set before the final trim so the
// hybrid blend has enough material from both sides.
const internalLimit = 50

// Engine generates, caches and serves recommendations.
//
// Per request it runs CHECK_CACHE -> [HIT: return] / [MISS or
// forceRefresh: GENERATE -> PERSIST -> return]. A cache hit requires
// enough unexpired rows to satisfy the requested limit.
type Engine struct {
	store Store
	cfg   config.RecommendConfig

	mu         sync.Mutex
	snapshot   []models.Event
	snapshotAt time.Time
}

// NewEngine creates the engine.
func NewEngine(store Store, cfg config.RecommendConfig) *Engine {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.InternalLimit <= 0 {
		cfg.InternalLimit = internalLimit
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = models.RecommendationTTL
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = 10 * time.Minute
	}
	return &Engine{store: store, cfg: cfg}
}

// Recommend returns a ranked recommendation list for one user.
func (e *Engine) Recommend(ctx context.Context, req Request) ([]models.Recommendation, error) {
	if req.UserID == "" {
		return nil, errors.New("user id required")
	}
	if req.Algorithm == "" {
		req.Algorithm = AlgorithmHybrid
	}
	if !req.Algorithm.Valid() {
		return nil, fmt.Errorf("unknown algorithm: %s", req.Algorithm)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}

	now := time.Now()

	if !req.ForceRefresh {
		cached, err := e.store.ActiveRecommendations(ctx, req.UserID, now, limit)
		if err != nil {
			return nil, fmt.Errorf("check recommendation cache: %w", err)
		}
		// A hit requires rows that are valid against this process's
		// clock, not only the store's expires_at filter.
		fresh := cached[:0:0]
		for _, r := range cached {
			if !r.Expired(now) {
				fresh = append(fresh, r)
			}
		}
		if len(fresh) >= limit {
			metrics.RecommendRequestsTotal.WithLabelValues(string(req.Algorithm), "hit").Inc()
			return fresh, nil
		}
	}
	metrics.RecommendRequestsTotal.WithLabelValues(string(req.Algorithm), "miss").Inc()

	start := time.Now()
	results, err := e.generate(ctx, req.UserID, req.Algorithm, now)
	if err != nil {
		return nil, err
	}
	metrics.RecommendGenerationDuration.WithLabelValues(string(req.Algorithm)).Observe(time.Since(start).Seconds())

	recs := make([]models.Recommendation, 0, len(results))
	for _, s := range results {
		recs = append(recs, models.Recommendation{
			UserID:    req.UserID,
			EventID:   s.EventID,
			Score:     s.Score,
			Reason:    s.Reason,
			Algorithm: string(s.Algorithm),
			CreatedAt: now,
			ExpiresAt: now.Add(e.cfg.CacheTTL),
		})
	}

	// All computed scores are persisted, not just the served page. The
	// rows double as cache and audit trail.
	if err := e.store.UpsertRecommendations(ctx, recs); err != nil {
		return nil, fmt.Errorf("persist recommendations: %w", err)
	}
	metrics.RecommendScoresPersisted.Add(float64(len(recs)))

	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// generate runs the selected algorithm over the candidate snapshot.
func (e *Engine) generate(ctx context.Context, userID string, algorithm Algorithm, now time.Time) ([]scored, error) {
	candidates, err := e.candidates(ctx, now)
	if err != nil {
		return nil, err
	}

	var content, collab []scored

	if algorithm == AlgorithmContent || algorithm == AlgorithmHybrid {
		pref, err := e.preference(ctx, userID)
		if err != nil {
			return nil, err
		}
		content = trim(scoreContent(candidates, pref, now), e.cfg.InternalLimit)
	}

	if algorithm == AlgorithmCollaborative || algorithm == AlgorithmHybrid {
		collab, err = e.collaborative(ctx, userID)
		if err != nil {
			return nil, err
		}
		collab = trim(collab, e.cfg.InternalLimit)
	}

	switch algorithm {
	case AlgorithmContent:
		return content, nil
	case AlgorithmCollaborative:
		return collab, nil
	default:
		return blendHybrid(content, collab), nil
	}
}

// preference loads the user's preferences; absence is neutral, not an
// error.
func (e *Engine) preference(ctx context.Context, userID string) (*models.UserPreference, error) {
	pref, err := e.store.Preference(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	return pref, nil
}

// collaborative assembles the co-interaction graph around the user's
// positive history and scores it. Cold-start users yield an empty list.
func (e *Engine) collaborative(ctx context.Context, userID string) ([]scored, error) {
	own, err := e.store.InteractionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}

	var positiveEvents []string
	positiveSeen := make(map[string]struct{})
	for _, in := range own {
		if !in.Type.Positive() {
			continue
		}
		if _, dup := positiveSeen[in.EventID]; dup {
			continue
		}
		positiveSeen[in.EventID] = struct{}{}
		positiveEvents = append(positiveEvents, in.EventID)
	}
	if len(positiveEvents) == 0 {
		return nil, nil
	}

	coInteractions, err := e.store.InteractionsForEvents(ctx, positiveEvents)
	if err != nil {
		return nil, fmt.Errorf("load co-interactions: %w", err)
	}

	var otherUsers []string
	otherSeen := make(map[string]struct{})
	for _, in := range coInteractions {
		if in.UserID == userID || !in.Type.Positive() {
			continue
		}
		if _, dup := otherSeen[in.UserID]; dup {
			continue
		}
		otherSeen[in.UserID] = struct{}{}
		otherUsers = append(otherUsers, in.UserID)
	}
	if len(otherUsers) == 0 {
		return nil, nil
	}

	similarInteractions, err := e.store.InteractionsByUsers(ctx, otherUsers)
	if err != nil {
		return nil, fmt.Errorf("load similar users' interactions: %w", err)
	}

	return scoreCollaborative(userID, own, coInteractions, similarInteractions), nil
}

// candidates returns the upcoming-event snapshot, refreshed when stale.
func (e *Engine) candidates(ctx context.Context, now time.Time) ([]models.Event, error) {
	e.mu.Lock()
	if e.snapshot != nil && now.Sub(e.snapshotAt) < e.cfg.SnapshotTTL {
		snapshot := e.snapshot
		e.mu.Unlock()
		return snapshot, nil
	}
	e.mu.Unlock()

	events, err := e.store.UpcomingEvents(ctx, now, 0)
	if err != nil {
		return nil, fmt.Errorf("load candidate events: %w", err)
	}

	e.mu.Lock()
	e.snapshot = events
	e.snapshotAt = now
	e.mu.Unlock()
	return events, nil
}

// InvalidateSnapshot drops the cached candidate set so the next request
// sees freshly ingested events.
func (e *Engine) InvalidateSnapshot() {
	e.mu.Lock()
	e.snapshot = nil
	e.snapshotAt = time.Time{}
	e.mu.Unlock()
}

// ConsumeIngestNotices invalidates the snapshot whenever an ingestion run
// stores events. Blocks until ctx is canceled or the subscription closes.
func (e *Engine) ConsumeIngestNotices(ctx context.Context, sub message.Subscriber) error {
	messages, err := sub.Subscribe(ctx, ingest.TopicEventsIngested)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", ingest.TopicEventsIngested, err)
	}

	for msg := range messages {
		e.InvalidateSnapshot()
		logging.Debug().Str("message_id", msg.UUID).Msg("candidate snapshot invalidated after ingestion")
		msg.Ack()
	}
	return nil
}

// RecordFeedback logs recommendation feedback (helpful, not_helpful,
// dismissed) as an interaction row. Feedback is an observability hook; it
// does not feed back into scoring weights.
func (e *Engine) RecordFeedback(ctx context.Context, userID, eventID, value string) error {
	if userID == "" || eventID == "" {
		return errors.New("user id and event id required")
	}

	// "view" is not a positive signal, so feedback rows never leak into
	// collaborative scoring.
	return e.store.InsertInteraction(ctx, &models.UserInteraction{
		UserID:   userID,
		EventID:  eventID,
		Type:     models.InteractionView,
		Metadata: map[string]string{"feedback": value},
	})
}

// ClearCache removes all cached recommendation rows for one user.
func (e *Engine) ClearCache(ctx context.Context, userID string) error {
	return e.store.DeleteRecommendations(ctx, userID)
}

// trim bounds a scored list.
func trim(s []scored, limit int) []scored {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
