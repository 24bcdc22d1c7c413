// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

// Package main is the entry point for the Conventus server.
//
// Conventus aggregates events from multiple platforms (Eventbrite, Meetup,
// web-reader scrapers) into a unified store and serves personalized event
// recommendations over a REST API.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered loading (defaults, YAML file, env vars)
//  2. Database: DuckDB store with schema migrations
//  3. Page cache: BadgerDB-backed cache for scraper reader pages (optional)
//  4. Plugins: one registry entry per configured source platform
//  5. Pub/sub: in-process Watermill channel for ingestion notices
//  6. Services: ingestion service and recommendation engine
//  7. Supervisor tree: scheduler, notice consumer, purger, and HTTP server
//
// # Configuration
//
// Configuration precedence (highest wins):
//   - CONVENTUS_-prefixed environment variables
//   - Config file (config.yaml, or CONVENTUS_CONFIG path)
//   - Built-in defaults
//
// Source plugins are disabled by default; enable them individually, e.g.:
//
//	export CONVENTUS_SOURCES_EVENTBRITE_ENABLED=true
//	export CONVENTUS_SOURCES_EVENTBRITE_TOKEN=your-private-token
//	./conventus
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the supervisor
// tree winds down its layers, the HTTP server drains in-flight requests
// within the shutdown timeout, and storage handles are closed last.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/conventus/internal/api"
	"github.com/tomtom215/conventus/internal/cache"
	"github.com/tomtom215/conventus/internal/config"
	"github.com/tomtom215/conventus/internal/database"
	"github.com/tomtom215/conventus/internal/ingest"
	"github.com/tomtom215/conventus/internal/logging"
	"github.com/tomtom215/conventus/internal/models"
	"github.com/tomtom215/conventus/internal/plugin"
	"github.com/tomtom215/conventus/internal/recommend"
	"github.com/tomtom215/conventus/internal/supervisor"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	}); err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize logging")
	}

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Dur("ingest_interval", cfg.Ingestion.Interval).
		Msg("Starting Conventus")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	// The page cache backs the web-reader scrapers; API plugins never touch
	// it. With the cache disabled, scrapers hit the reader proxy every run.
	var pages plugin.PageCache
	if cfg.Cache.Enabled {
		pc, err := cache.Open(cfg.Cache.Path, cfg.Cache.TTL)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open page cache")
		}
		defer func() {
			if err := pc.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing page cache")
			}
		}()
		pages = pc
	}

	registry, err := buildRegistry(cfg, pages)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build plugin registry")
	}
	if err := seedSourceCatalog(context.Background(), db, registry); err != nil {
		logging.Fatal().Err(err).Msg("Failed to seed source catalog")
	}

	// In-process pub/sub: ingestion runs publish completion notices, the
	// recommendation engine consumes them to invalidate its candidate
	// snapshot.
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logging.NewSlogLogger()))
	defer func() {
		if err := pubsub.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing pub/sub")
		}
	}()

	ingestSvc := ingest.NewService(registry, db, pubsub, cfg.Ingestion.BatchSize)
	engine := recommend.NewEngine(db, cfg.Recommend)

	server := api.NewServer(cfg.Server, ingestSvc, engine, registry, db)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(supervisor.NewPurgeService(db, time.Hour))
	tree.AddIngestionService(supervisor.NewIngestScheduler(ingestSvc, cfg.Ingestion.Interval, ingest.RunOptions{
		ContinueOnError: cfg.Ingestion.ContinueOnError,
	}))
	tree.AddIngestionService(supervisor.NewInvalidationService(engine, pubsub))
	tree.AddAPIService(supervisor.NewHTTPService(httpServer, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", httpServer.Addr).Msg("Supervisor tree starting")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Fatal().Err(err).Msg("Supervisor tree failed")
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service missed shutdown timeout")
		}
	}
	logging.Info().Msg("Shutdown complete")
}

// buildRegistry registers every configured source plugin. Disabled plugins
// are registered too so the health and stats endpoints can report them.
func buildRegistry(cfg *config.Config, pages plugin.PageCache) (*plugin.Registry, error) {
	fcfg := plugin.FetcherConfig{
		Timeout:    cfg.Ingestion.RequestTimeout,
		MaxRetries: cfg.Ingestion.MaxRetries,
		BaseDelay:  cfg.Ingestion.RetryBaseDelay,
	}

	registry := plugin.NewRegistry()
	plugins := []plugin.Plugin{
		plugin.NewEventbrite(cfg.Sources.Eventbrite, fcfg),
		plugin.NewMeetup(cfg.Sources.Meetup, fcfg),
		plugin.NewMeetupWeb(cfg.Sources.MeetupWeb, fcfg, pages),
		plugin.NewLumaWeb(cfg.Sources.LumaWeb, fcfg, pages),
		plugin.NewSiteScraper(cfg.Sources.SiteScraper, fcfg, pages),
	}
	for _, p := range plugins {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// seedSourceCatalog upserts a catalog row per registered plugin. Existing
// rows keep their active flag so operator toggles survive restarts.
func seedSourceCatalog(ctx context.Context, db *database.DB, registry *plugin.Registry) error {
	sources := make([]models.EventSource, 0, len(registry.All()))
	for _, p := range registry.All() {
		sources = append(sources, models.EventSource{
			ID:     p.Source(),
			Name:   p.Source(),
			Active: p.Enabled(),
		})
	}
	return db.SeedSources(ctx, sources)
}
