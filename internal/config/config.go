// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

// Package config defines the Conventus configuration model and its koanf
// based loader. Precedence: struct defaults, then the YAML config file, then
// CONVENTUS_-prefixed environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Logging   LoggingConfig   `koanf:"logging"`
	Cache     CacheConfig     `koanf:"cache"`
	Ingestion IngestionConfig `koanf:"ingestion"`
	Recommend RecommendConfig `koanf:"recommend"`
	Sources   SourcesConfig   `koanf:"sources"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_requests"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// CacheConfig configures the badger-backed scraper page cache.
type CacheConfig struct {
	Enabled bool          `koanf:"enabled"`
	Path    string        `koanf:"path"`
	TTL     time.Duration `koanf:"ttl"`
}

// IngestionConfig configures the ingestion service and scheduler.
type IngestionConfig struct {
	Interval        time.Duration `koanf:"interval"`
	BatchSize       int           `koanf:"batch_size" validate:"gte=1"`
	ContinueOnError bool          `koanf:"continue_on_error"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	MaxRetries      int           `koanf:"max_retries" validate:"gte=0"`
	RetryBaseDelay  time.Duration `koanf:"retry_base_delay"`
}

// RecommendConfig configures the recommendation engine.
type RecommendConfig struct {
	DefaultLimit  int           `koanf:"default_limit" validate:"gte=1"`
	InternalLimit int           `koanf:"internal_limit" validate:"gte=1"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`
	SnapshotTTL   time.Duration `koanf:"snapshot_ttl"`
}

// APISourceConfig configures an authenticated JSON/GraphQL API plugin.
type APISourceConfig struct {
	Enabled bool   `koanf:"enabled"`
	Token   string `koanf:"token"`
	BaseURL string `koanf:"base_url"`
}

// ScraperSourceConfig configures an unauthenticated web-reader scraper
// plugin.
type ScraperSourceConfig struct {
	Enabled           bool     `koanf:"enabled"`
	ReaderURL         string   `koanf:"reader_url"`
	Sites             []string `koanf:"sites"`
	RequestsPerSecond float64  `koanf:"requests_per_second"`
}

// SourcesConfig configures all source plugins.
type SourcesConfig struct {
	Eventbrite  APISourceConfig     `koanf:"eventbrite"`
	Meetup      APISourceConfig     `koanf:"meetup"`
	MeetupWeb   ScraperSourceConfig `koanf:"meetup_web"`
	LumaWeb     ScraperSourceConfig `koanf:"luma_web"`
	SiteScraper ScraperSourceConfig `koanf:"site_scraper"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3861,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Database: DatabaseConfig{
			Path:      "/data/conventus.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    "/data/conventus-pagecache",
			TTL:     30 * time.Minute,
		},
		Ingestion: IngestionConfig{
			Interval:        6 * time.Hour,
			BatchSize:       100,
			ContinueOnError: true,
			RequestTimeout:  30 * time.Second,
			MaxRetries:      3,
			RetryBaseDelay:  time.Second,
		},
		Recommend: RecommendConfig{
			DefaultLimit:  10,
			InternalLimit: 50,
			CacheTTL:      7 * 24 * time.Hour,
			SnapshotTTL:   10 * time.Minute,
		},
		Sources: SourcesConfig{
			Eventbrite: APISourceConfig{
				Enabled: false,
				BaseURL: "https://www.eventbriteapi.com/v3",
			},
			Meetup: APISourceConfig{
				Enabled: false,
				BaseURL: "https://api.meetup.com/gql",
			},
			MeetupWeb: ScraperSourceConfig{
				Enabled:           false,
				ReaderURL:         "https://r.jina.ai",
				RequestsPerSecond: 0.5,
			},
			LumaWeb: ScraperSourceConfig{
				Enabled:           false,
				ReaderURL:         "https://r.jina.ai",
				RequestsPerSecond: 0.5,
			},
			SiteScraper: ScraperSourceConfig{
				Enabled:           false,
				ReaderURL:         "https://r.jina.ai",
				RequestsPerSecond: 0.25,
			},
		},
	}
}

// Validate checks the configuration for consistency beyond struct tags.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	if c.Sources.Eventbrite.Enabled && c.Sources.Eventbrite.Token == "" {
		return fmt.Errorf("config validation: sources.eventbrite.token required when eventbrite is enabled")
	}
	if c.Sources.Meetup.Enabled && c.Sources.Meetup.Token == "" {
		return fmt.Errorf("config validation: sources.meetup.token required when meetup is enabled")
	}
	if c.Sources.SiteScraper.Enabled && len(c.Sources.SiteScraper.Sites) == 0 {
		return fmt.Errorf("config validation: sources.site_scraper.sites required when site_scraper is enabled")
	}

	return nil
}
