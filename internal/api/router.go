// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

// Package api exposes the HTTP surface: ingestion triggers, recommendation
// retrieval and feedback, plugin health and rate-limit introspection, and
// operational endpoints.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/conventus/internal/config"
	"github.com/tomtom215/conventus/internal/ingest"
	"github.com/tomtom215/conventus/internal/logging"
	"github.com/tomtom215/conventus/internal/metrics"
	"github.com/tomtom215/conventus/internal/models"
	"github.com/tomtom215/conventus/internal/plugin"
	"github.com/tomtom215/conventus/internal/recommend"
)

// Ingestor is the ingestion surface the API needs.
type Ingestor interface {
	Ingest(ctx context.Context, opts ingest.RunOptions) (ingest.RunResult, error)
}

// Recommender is the recommendation surface the API needs.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) ([]models.Recommendation, error)
	RecordFeedback(ctx context.Context, userID, eventID, value string) error
	ClearCache(ctx context.Context, userID string) error
}

// Pinger reports storage liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP API server.
type Server struct {
	cfg         config.ServerConfig
	router      chi.Router
	ingestor    Ingestor
	recommender Recommender
	registry    *plugin.Registry
	db          Pinger
}

// NewServer builds the server and its route tree.
func NewServer(cfg config.ServerConfig, ingestor Ingestor, recommender Recommender, registry *plugin.Registry, db Pinger) *Server {
	s := &Server{
		cfg:         cfg,
		ingestor:    ingestor,
		recommender: recommender,
		registry:    registry,
		db:          db,
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// buildRouter assembles middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	rateLimit := s.cfg.RateLimitReqs
	if rateLimit <= 0 {
		rateLimit = 100
	}
	rateWindow := s.cfg.RateLimitWindow
	if rateWindow <= 0 {
		rateWindow = time.Minute
	}

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rateLimit, rateWindow))

		r.Post("/ingest", s.handleIngest)
		r.Get("/ingest/stats", s.handleIngestStats)

		r.Get("/recommendations", s.handleRecommendations)
		r.Delete("/recommendations", s.handleClearRecommendations)
		r.Post("/recommendations/feedback", s.handleFeedback)

		r.Get("/plugins/health", s.handlePluginHealth)
		r.Get("/plugins/ratelimits", s.handlePluginRateLimits)
	})

	return r
}

// requestID attaches a request id header.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// requestLogger records structured access logs and HTTP metrics.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		status := strconv.Itoa(ww.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration.Seconds())

		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", duration).
			Msg("request handled")
	})
}
