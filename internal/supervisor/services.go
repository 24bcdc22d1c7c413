// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/conventus/internal/ingest"
	"github.com/tomtom215/conventus/internal/logging"
)

// HTTPServer matches *http.Server's lifecycle so the wrapper can be tested
// without binding a socket.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService adapts an HTTP server's blocking ListenAndServe to suture's
// context-aware Serve. On cancellation it shuts the server down gracefully
// within the configured timeout.
type HTTPService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPService wraps server as a supervised service.
func NewHTTPService(server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service. http.ErrServerClosed is the expected
// outcome of a graceful shutdown and is not an error.
func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPService) String() string { return "http-server" }

// Ingestor is the ingestion surface the scheduler drives.
type Ingestor interface {
	Ingest(ctx context.Context, opts ingest.RunOptions) (ingest.RunResult, error)
}

// IngestScheduler runs full ingestion on a fixed interval. The first run
// fires immediately on startup so a fresh deployment has data before the
// first tick.
type IngestScheduler struct {
	ingestor Ingestor
	interval time.Duration
	opts     ingest.RunOptions
}

// NewIngestScheduler builds the scheduler. Interval defaults to six hours.
func NewIngestScheduler(ingestor Ingestor, interval time.Duration, opts ingest.RunOptions) *IngestScheduler {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &IngestScheduler{ingestor: ingestor, interval: interval, opts: opts}
}

// Serve implements suture.Service. Run failures are logged, not returned:
// a failing source must not put the scheduler into restart backoff.
func (s *IngestScheduler) Serve(ctx context.Context) error {
	s.run(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *IngestScheduler) run(ctx context.Context) {
	result, err := s.ingestor.Ingest(ctx, s.opts)
	if err != nil {
		logging.Error().Err(err).Msg("scheduled ingestion run failed")
		return
	}
	logging.Info().
		Int("events_fetched", result.EventsFetched).
		Int("events_stored", result.EventsStored).
		Int("failures", result.Failures).
		Dur("duration", result.Duration).
		Msg("scheduled ingestion run complete")
}

func (s *IngestScheduler) String() string { return "ingest-scheduler" }

// NoticeConsumer is the subscription surface the invalidation service drives.
type NoticeConsumer interface {
	ConsumeIngestNotices(ctx context.Context, sub message.Subscriber) error
}

// InvalidationService keeps the recommendation engine's candidate snapshot
// coherent by consuming ingestion notices for the life of the process.
type InvalidationService struct {
	consumer   NoticeConsumer
	subscriber message.Subscriber
}

// NewInvalidationService wraps the engine's notice consumer as a supervised
// service.
func NewInvalidationService(consumer NoticeConsumer, subscriber message.Subscriber) *InvalidationService {
	return &InvalidationService{consumer: consumer, subscriber: subscriber}
}

// Serve implements suture.Service.
func (i *InvalidationService) Serve(ctx context.Context) error {
	if err := i.consumer.ConsumeIngestNotices(ctx, i.subscriber); err != nil {
		return fmt.Errorf("ingest notice consumer failed: %w", err)
	}
	return ctx.Err()
}

func (i *InvalidationService) String() string { return "snapshot-invalidator" }

// RecommendationPurger is the storage surface the purge service drives.
type RecommendationPurger interface {
	DeleteExpiredRecommendations(ctx context.Context, now time.Time) (int64, error)
}

// PurgeService deletes expired recommendation rows on an interval so the
// cache table does not grow unbounded between regenerations.
type PurgeService struct {
	store    RecommendationPurger
	interval time.Duration
}

// NewPurgeService builds the purge loop. Interval defaults to one hour.
func NewPurgeService(store RecommendationPurger, interval time.Duration) *PurgeService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &PurgeService{store: store, interval: interval}
}

// Serve implements suture.Service.
func (p *PurgeService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			purged, err := p.store.DeleteExpiredRecommendations(ctx, time.Now())
			if err != nil {
				logging.Warn().Err(err).Msg("recommendation purge failed")
				continue
			}
			if purged > 0 {
				logging.Debug().Int64("purged", purged).Msg("expired recommendations purged")
			}
		}
	}
}

func (p *PurgeService) String() string { return "recommendation-purger" }
