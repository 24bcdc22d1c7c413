// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

// Package ingest orchestrates event collection: it resolves which sources
// to pull from, delegates fetching to the plugin registry, persists
// normalized events in batches, and reports structured per-source results.
// A failing source never aborts an ingestion run unless configured to.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/conventus/internal/logging"
	"github.com/tomtom215/conventus/internal/metrics"
	"github.com/tomtom215/conventus/internal/models"
	"github.com/tomtom215/conventus/internal/plugin"
)

// TopicEventsIngested carries a RunNotice after each ingestion run that
// stored at least one event. The recommendation engine subscribes to it to
// invalidate its candidate snapshot.
const TopicEventsIngested = "events.ingested"

// defaultBatchSize bounds one persistence transaction.
const defaultBatchSize = 100

// Store is the persistence surface the service needs.
type Store interface {
	UpsertEvents(ctx context.Context, events []models.Event) (int, error)
	ActiveSources(ctx context.Context) ([]models.EventSource, error)
}

// Publisher is the completion-event surface. Satisfied by watermill's
// message.Publisher.
type Publisher interface {
	Publish(topic string, messages ...*message.Message) error
}

// SourceResult is the structured outcome of ingesting one source. Fetch
// and persistence failures are captured here, never raised.
type SourceResult struct {
	Source        string        `json:"source"`
	Success       bool          `json:"success"`
	EventsFetched int           `json:"events_fetched"`
	EventsStored  int           `json:"events_stored"`
	Errors        []string      `json:"errors,omitempty"`
	Duration      time.Duration `json:"duration_ms"`
}

// RunResult aggregates one full ingestion run.
type RunResult struct {
	StartedAt     time.Time      `json:"started_at"`
	Duration      time.Duration  `json:"duration_ms"`
	Sources       []SourceResult `json:"sources"`
	EventsFetched int            `json:"events_fetched"`
	EventsStored  int            `json:"events_stored"`
	Failures      int            `json:"failures"`
}

// RunNotice is the payload published on TopicEventsIngested.
type RunNotice struct {
	Sources      []string  `json:"sources"`
	EventsStored int       `json:"events_stored"`
	FinishedAt   time.Time `json:"finished_at"`
}

// RunOptions narrows one ingestion run. Zero values mean: all cataloged
// sources, no filters, configured defaults.
type RunOptions struct {
	Sources         []string
	Filters         models.EventFilters
	ContinueOnError bool
	BatchSize       int
}

// Service coordinates fetching and persistence.
type Service struct {
	registry  *plugin.Registry
	store     Store
	publisher Publisher
	batchSize int
}

// NewService creates the ingestion service. publisher may be nil when no
// downstream consumer exists (tests, one-shot CLI runs).
func NewService(registry *plugin.Registry, store Store, publisher Publisher, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Service{
		registry:  registry,
		store:     store,
		publisher: publisher,
		batchSize: batchSize,
	}
}

// IngestFromSource ingests one source and returns a structured result.
// All failures land in the result's Errors; the method itself never fails.
func (s *Service) IngestFromSource(ctx context.Context, source string, filters models.EventFilters) SourceResult {
	return s.ingestOne(ctx, source, filters, s.batchSize)
}

// Ingest runs a full ingestion pass over the requested sources (or every
// enabled, cataloged source). Plugins enabled in configuration but missing
// from the source catalog are skipped with a warning.
func (s *Service) Ingest(ctx context.Context, opts RunOptions) (RunResult, error) {
	start := time.Now()
	result := RunResult{StartedAt: start}

	sources, err := s.resolveSources(ctx, opts.Sources)
	if err != nil {
		return result, err
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = s.batchSize
	}

	for _, source := range sources {
		sr := s.ingestOne(ctx, source, opts.Filters, batchSize)
		result.Sources = append(result.Sources, sr)
		result.EventsFetched += sr.EventsFetched
		result.EventsStored += sr.EventsStored
		if !sr.Success {
			result.Failures++
			if !opts.ContinueOnError {
				break
			}
		}
	}

	result.Duration = time.Since(start)
	logging.Info().
		Int("sources", len(result.Sources)).
		Int("stored", result.EventsStored).
		Int("failures", result.Failures).
		Dur("duration", result.Duration).
		Msg("ingestion run complete")

	s.publishRunNotice(result)
	return result, nil
}

// resolveSources intersects the requested sources with the enabled plugin
// set and the source catalog.
func (s *Service) resolveSources(ctx context.Context, requested []string) ([]string, error) {
	cataloged, err := s.store.ActiveSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("load source catalog: %w", err)
	}
	catalog := make(map[string]struct{}, len(cataloged))
	for _, src := range cataloged {
		catalog[src.ID] = struct{}{}
	}

	if len(requested) > 0 {
		return requested, nil
	}

	var out []string
	for _, p := range s.registry.Enabled() {
		source := p.Source()
		if _, ok := catalog[source]; !ok {
			logging.Warn().Str("source", source).Msg("plugin enabled but not in source catalog, skipping")
			continue
		}
		out = append(out, source)
	}
	return out, nil
}

// ingestOne fetches one source and persists its events in batches.
func (s *Service) ingestOne(ctx context.Context, source string, filters models.EventFilters, batchSize int) SourceResult {
	start := time.Now()
	result := SourceResult{Source: source}

	defer func() {
		result.Duration = time.Since(start)
		outcome := "success"
		if !result.Success {
			outcome = "error"
		}
		metrics.IngestRunsTotal.WithLabelValues(source, outcome).Inc()
		metrics.IngestDuration.WithLabelValues(source).Observe(result.Duration.Seconds())
		if result.Success {
			metrics.IngestLastSuccess.WithLabelValues(source).SetToCurrentTime()
			metrics.IngestEventsStored.WithLabelValues(source).Add(float64(result.EventsStored))
		}
	}()

	p, ok := s.registry.Get(source)
	if !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("No plugin registered for source: %s", source))
		return result
	}
	if !p.ValidateConfig() {
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid configuration for source: %s", source))
		return result
	}

	normalized, err := s.registry.FetchFromSource(ctx, source, filters)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	result.EventsFetched = len(normalized)

	now := time.Now()
	events := make([]models.Event, 0, len(normalized))
	for _, n := range normalized {
		events = append(events, models.Event{
			SourceID:    n.Source,
			ExternalID:  n.ExternalID,
			Title:       n.Title,
			Description: n.Description,
			URL:         n.URL,
			ImageURL:    n.ImageURL,
			StartTime:   n.StartTime,
			EndTime:     n.EndTime,
			Location:    n.Location,
			Category:    n.Category,
			Tags:        n.Tags,
			FetchedAt:   now,
			UpdatedAt:   now,
		})
	}

	for offset := 0; offset < len(events); offset += batchSize {
		end := offset + batchSize
		if end > len(events) {
			end = len(events)
		}
		stored, err := s.store.UpsertEvents(ctx, events[offset:end])
		result.EventsStored += stored
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("persist batch: %v", err))
			return result
		}
	}

	result.Success = true
	return result
}

// publishRunNotice emits the completion event for runs that stored data.
func (s *Service) publishRunNotice(result RunResult) {
	if s.publisher == nil || result.EventsStored == 0 {
		return
	}

	notice := RunNotice{
		EventsStored: result.EventsStored,
		FinishedAt:   time.Now(),
	}
	for _, sr := range result.Sources {
		if sr.Success && sr.EventsStored > 0 {
			notice.Sources = append(notice.Sources, sr.Source)
		}
	}

	payload, err := json.Marshal(notice)
	if err != nil {
		logging.Error().Err(err).Msg("marshal ingestion notice")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.publisher.Publish(TopicEventsIngested, msg); err != nil {
		logging.Error().Err(err).Msg("publish ingestion notice")
	}
}
