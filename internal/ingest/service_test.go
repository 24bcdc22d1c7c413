// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/conventus/internal/models"
	"github.com/tomtom215/conventus/internal/plugin"
)

// stubPlugin implements plugin.Plugin with canned responses.
type stubPlugin struct {
	source     string
	enabled    bool
	invalidCfg bool
	events     []models.NormalizedEvent
	err        error
}

func (p *stubPlugin) Source() string       { return p.source }
func (p *stubPlugin) Enabled() bool        { return p.enabled }
func (p *stubPlugin) ValidateConfig() bool { return !p.invalidCfg }

func (p *stubPlugin) HealthCheck(ctx context.Context) models.HealthStatus {
	return models.HealthStatus{Healthy: true}
}

func (p *stubPlugin) RateLimitStatus() models.RateLimitStatus {
	return models.RateLimitStatus{}
}

func (p *stubPlugin) FetchEvents(ctx context.Context, filters models.EventFilters) ([]models.NormalizedEvent, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.events, nil
}

// fakeStore records upsert batches in memory, keyed (source_id, external_id).
type fakeStore struct {
	sources    []models.EventSource
	sourcesErr error
	upsertErr  error
	batches    [][]models.Event
	rows       map[string]models.Event
}

func newFakeStore(sourceIDs ...string) *fakeStore {
	s := &fakeStore{rows: make(map[string]models.Event)}
	for _, id := range sourceIDs {
		s.sources = append(s.sources, models.EventSource{ID: id, Name: id, Active: true})
	}
	return s
}

func (s *fakeStore) UpsertEvents(ctx context.Context, events []models.Event) (int, error) {
	if s.upsertErr != nil {
		return 0, s.upsertErr
	}
	batch := append([]models.Event(nil), events...)
	s.batches = append(s.batches, batch)
	for _, ev := range events {
		s.rows[ev.SourceID+"/"+ev.ExternalID] = ev
	}
	return len(events), nil
}

func (s *fakeStore) ActiveSources(ctx context.Context) ([]models.EventSource, error) {
	if s.sourcesErr != nil {
		return nil, s.sourcesErr
	}
	return s.sources, nil
}

// capturingPublisher records published messages.
type capturingPublisher struct {
	topics   []string
	messages []*message.Message
}

func (p *capturingPublisher) Publish(topic string, messages ...*message.Message) error {
	for range messages {
		p.topics = append(p.topics, topic)
	}
	p.messages = append(p.messages, messages...)
	return nil
}

func stubEvents(source string, n int) []models.NormalizedEvent {
	out := make([]models.NormalizedEvent, n)
	for i := range out {
		out[i] = models.NormalizedEvent{
			Source:     source,
			ExternalID: fmt.Sprintf("%s-%d", source, i),
			Title:      fmt.Sprintf("Event %d", i),
			StartTime:  time.Now().Add(24 * time.Hour),
		}
	}
	return out
}

func testRegistry(t *testing.T, plugins ...plugin.Plugin) *plugin.Registry {
	t.Helper()
	r := plugin.NewRegistry()
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}
	return r
}

func TestIngestFromSource_Success(t *testing.T) {
	store := newFakeStore("alpha")
	r := testRegistry(t, &stubPlugin{source: "alpha", enabled: true, events: stubEvents("alpha", 3)})
	svc := NewService(r, store, nil, 0)

	result := svc.IngestFromSource(context.Background(), "alpha", models.EventFilters{})

	if !result.Success {
		t.Fatalf("result = %+v, want success", result)
	}
	if result.EventsFetched != 3 || result.EventsStored != 3 {
		t.Errorf("fetched/stored = %d/%d, want 3/3", result.EventsFetched, result.EventsStored)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v", result.Errors)
	}

	stored := store.rows["alpha/alpha-0"]
	if stored.Title != "Event 0" || stored.FetchedAt.IsZero() {
		t.Errorf("stored row = %+v", stored)
	}
}

func TestIngestFromSource_UnknownSource(t *testing.T) {
	svc := NewService(testRegistry(t), newFakeStore(), nil, 0)

	result := svc.IngestFromSource(context.Background(), "ghost", models.EventFilters{})

	if result.Success {
		t.Fatal("result should not be successful")
	}
	if len(result.Errors) != 1 || result.Errors[0] != "No plugin registered for source: ghost" {
		t.Errorf("Errors = %v", result.Errors)
	}
}

func TestIngestFromSource_InvalidConfig(t *testing.T) {
	// The plugin would happily serve events, but its config is invalid;
	// ingestion must refuse before fetching.
	store := newFakeStore("badcfg")
	r := testRegistry(t, &stubPlugin{source: "badcfg", enabled: true, invalidCfg: true, events: stubEvents("badcfg", 3)})
	svc := NewService(r, store, nil, 0)

	result := svc.IngestFromSource(context.Background(), "badcfg", models.EventFilters{})

	if result.Success {
		t.Fatal("result should not be successful")
	}
	if result.EventsFetched != 0 || result.EventsStored != 0 {
		t.Errorf("fetched/stored = %d/%d, want 0/0", result.EventsFetched, result.EventsStored)
	}
	if len(result.Errors) != 1 || result.Errors[0] != "Invalid configuration for source: badcfg" {
		t.Errorf("Errors = %v", result.Errors)
	}
	if len(store.batches) != 0 {
		t.Errorf("store saw %d batches, want none", len(store.batches))
	}
}

func TestIngestFromSource_FetchFailureCaptured(t *testing.T) {
	r := testRegistry(t, &stubPlugin{source: "alpha", enabled: true, err: errors.New("upstream 500")})
	svc := NewService(r, newFakeStore("alpha"), nil, 0)

	result := svc.IngestFromSource(context.Background(), "alpha", models.EventFilters{})

	if result.Success {
		t.Fatal("result should not be successful")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "upstream 500") {
		t.Errorf("Errors = %v", result.Errors)
	}
}

func TestIngestFromSource_Batching(t *testing.T) {
	store := newFakeStore("alpha")
	r := testRegistry(t, &stubPlugin{source: "alpha", enabled: true, events: stubEvents("alpha", 250)})
	svc := NewService(r, store, nil, 50)

	result := svc.IngestFromSource(context.Background(), "alpha", models.EventFilters{})

	if !result.Success || result.EventsStored != 250 {
		t.Fatalf("result = %+v", result)
	}
	if len(store.batches) != 5 {
		t.Fatalf("store saw %d batches, want 5 of 50", len(store.batches))
	}
	for i, batch := range store.batches {
		if len(batch) != 50 {
			t.Errorf("batch %d has %d events, want 50", i, len(batch))
		}
	}
}

func TestIngestFromSource_PersistFailureCaptured(t *testing.T) {
	store := newFakeStore("alpha")
	store.upsertErr = errors.New("disk full")
	r := testRegistry(t, &stubPlugin{source: "alpha", enabled: true, events: stubEvents("alpha", 2)})
	svc := NewService(r, store, nil, 0)

	result := svc.IngestFromSource(context.Background(), "alpha", models.EventFilters{})

	if result.Success {
		t.Fatal("result should not be successful")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "disk full") {
		t.Errorf("Errors = %v", result.Errors)
	}
}

func TestIngest_ContinueOnError(t *testing.T) {
	store := newFakeStore("bad", "good")
	r := testRegistry(t,
		&stubPlugin{source: "bad", enabled: true, err: errors.New("down")},
		&stubPlugin{source: "good", enabled: true, events: stubEvents("good", 2)},
	)
	svc := NewService(r, store, nil, 0)

	result, err := svc.Ingest(context.Background(), RunOptions{ContinueOnError: true})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if len(result.Sources) != 2 {
		t.Fatalf("ran %d sources, want 2", len(result.Sources))
	}
	if result.Failures != 1 || result.EventsStored != 2 {
		t.Errorf("result = %+v", result)
	}
}

func TestIngest_StopOnError(t *testing.T) {
	store := newFakeStore("bad", "good")
	r := testRegistry(t,
		&stubPlugin{source: "bad", enabled: true, err: errors.New("down")},
		&stubPlugin{source: "good", enabled: true, events: stubEvents("good", 2)},
	)
	svc := NewService(r, store, nil, 0)

	// Registry iterates sources in lexical order, so "bad" runs first.
	result, err := svc.Ingest(context.Background(), RunOptions{ContinueOnError: false})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if len(result.Sources) != 1 {
		t.Fatalf("ran %d sources, want 1 (stopped after failure)", len(result.Sources))
	}
	if result.EventsStored != 0 {
		t.Errorf("EventsStored = %d, want 0", result.EventsStored)
	}
}

func TestIngest_SkipsUncatalogedPlugins(t *testing.T) {
	// "rogue" is enabled but absent from the catalog.
	store := newFakeStore("alpha")
	r := testRegistry(t,
		&stubPlugin{source: "alpha", enabled: true, events: stubEvents("alpha", 1)},
		&stubPlugin{source: "rogue", enabled: true, events: stubEvents("rogue", 1)},
	)
	svc := NewService(r, store, nil, 0)

	result, err := svc.Ingest(context.Background(), RunOptions{ContinueOnError: true})
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Sources) != 1 || result.Sources[0].Source != "alpha" {
		t.Errorf("sources = %+v, want only alpha", result.Sources)
	}
}

func TestIngest_ExplicitSourcesBypassCatalog(t *testing.T) {
	store := newFakeStore()
	r := testRegistry(t, &stubPlugin{source: "alpha", enabled: true, events: stubEvents("alpha", 1)})
	svc := NewService(r, store, nil, 0)

	result, err := svc.Ingest(context.Background(), RunOptions{Sources: []string{"alpha"}})
	if err != nil {
		t.Fatal(err)
	}
	if result.EventsStored != 1 {
		t.Errorf("EventsStored = %d, want 1", result.EventsStored)
	}
}

func TestIngest_PublishesRunNotice(t *testing.T) {
	store := newFakeStore("alpha")
	pub := &capturingPublisher{}
	r := testRegistry(t, &stubPlugin{source: "alpha", enabled: true, events: stubEvents("alpha", 2)})
	svc := NewService(r, store, pub, 0)

	if _, err := svc.Ingest(context.Background(), RunOptions{ContinueOnError: true}); err != nil {
		t.Fatal(err)
	}

	if len(pub.messages) != 1 || pub.topics[0] != TopicEventsIngested {
		t.Fatalf("published %d messages on %v, want 1 on %s", len(pub.messages), pub.topics, TopicEventsIngested)
	}
	if !strings.Contains(string(pub.messages[0].Payload), `"events_stored":2`) {
		t.Errorf("payload = %s", pub.messages[0].Payload)
	}
}

func TestIngest_NoNoticeWhenNothingStored(t *testing.T) {
	store := newFakeStore("bad")
	pub := &capturingPublisher{}
	r := testRegistry(t, &stubPlugin{source: "bad", enabled: true, err: errors.New("down")})
	svc := NewService(r, store, pub, 0)

	if _, err := svc.Ingest(context.Background(), RunOptions{ContinueOnError: true}); err != nil {
		t.Fatal(err)
	}

	if len(pub.messages) != 0 {
		t.Errorf("published %d messages, want 0", len(pub.messages))
	}
}

func TestIngest_CatalogFailure(t *testing.T) {
	store := newFakeStore()
	store.sourcesErr = errors.New("db closed")
	svc := NewService(testRegistry(t), store, nil, 0)

	if _, err := svc.Ingest(context.Background(), RunOptions{}); err == nil {
		t.Fatal("Ingest() should fail when the catalog is unreadable")
	}
}
