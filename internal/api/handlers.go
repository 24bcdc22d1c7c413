// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/conventus/internal/ingest"
	"github.com/tomtom215/conventus/internal/logging"
	"github.com/tomtom215/conventus/internal/models"
	"github.com/tomtom215/conventus/internal/recommend"
)

// ingestRequest is the POST /api/v1/ingest body.
type ingestRequest struct {
	Sources   []string `json:"sources,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	RadiusKm  float64  `json:"radius_km,omitempty"`
	Query     string   `json:"query,omitempty"`
	Category  string   `json:"category,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

// feedbackRequest is the POST /api/v1/recommendations/feedback body.
type feedbackRequest struct {
	UserID   string `json:"user_id"`
	EventID  string `json:"event_id"`
	Feedback string `json:"feedback"`
}

// Known feedback values.
var validFeedback = map[string]struct{}{
	"helpful": {}, "not_helpful": {}, "dismissed": {},
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	opts := ingest.RunOptions{
		Sources:         req.Sources,
		ContinueOnError: true,
		Filters: models.EventFilters{
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			RadiusKm:  req.RadiusKm,
			Query:     req.Query,
			Category:  req.Category,
			Limit:     req.Limit,
		},
	}

	result, err := s.ingestor.Ingest(r.Context(), opts)
	if err != nil {
		logging.Error().Err(err).Msg("ingestion run failed")
		respondError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleIngestStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.registry.Stats())
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	req := recommend.Request{
		UserID:    userID,
		Algorithm: recommend.Algorithm(r.URL.Query().Get("algorithm")),
	}
	if req.Algorithm != "" && !req.Algorithm.Valid() {
		respondError(w, http.StatusBadRequest, "unknown algorithm")
		return
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		req.Limit = limit
	}
	if raw := r.URL.Query().Get("force_refresh"); raw != "" {
		force, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "force_refresh must be a boolean")
			return
		}
		req.ForceRefresh = force
	}

	recs, err := s.recommender.Recommend(r.Context(), req)
	if err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("recommendation generation failed")
		respondError(w, http.StatusInternalServerError, "recommendation generation failed")
		return
	}
	if recs == nil {
		recs = []models.Recommendation{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":         userID,
		"recommendations": recs,
		"generated_at":    time.Now().UTC(),
	})
}

func (s *Server) handleClearRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := s.recommender.ClearCache(r.Context(), userID); err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("clear recommendations failed")
		respondError(w, http.StatusInternalServerError, "clear failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.EventID == "" {
		respondError(w, http.StatusBadRequest, "user_id and event_id are required")
		return
	}
	if _, ok := validFeedback[req.Feedback]; !ok {
		respondError(w, http.StatusBadRequest, "feedback must be helpful, not_helpful or dismissed")
		return
	}

	if err := s.recommender.RecordFeedback(r.Context(), req.UserID, req.EventID, req.Feedback); err != nil {
		logging.Error().Err(err).Str("user_id", req.UserID).Msg("record feedback failed")
		respondError(w, http.StatusInternalServerError, "record feedback failed")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handlePluginHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.registry.HealthStatus(r.Context()))
}

func (s *Server) handlePluginRateLimits(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.registry.RateLimits())
}

// respondJSON writes a JSON response body.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("encode response")
	}
}

// respondError writes a JSON error body.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
