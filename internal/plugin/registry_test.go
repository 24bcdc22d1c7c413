// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package plugin

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tomtom215/conventus/internal/models"
)

// fakePlugin is a configurable in-memory Plugin for registry tests.
type fakePlugin struct {
	source  string
	enabled bool
	events  []models.NormalizedEvent
	err     error
	fetches int
}

func (f *fakePlugin) Source() string       { return f.source }
func (f *fakePlugin) Enabled() bool        { return f.enabled }
func (f *fakePlugin) ValidateConfig() bool { return true }

func (f *fakePlugin) HealthCheck(ctx context.Context) models.HealthStatus {
	return models.HealthStatus{Healthy: f.err == nil}
}

func (f *fakePlugin) RateLimitStatus() models.RateLimitStatus {
	return models.RateLimitStatus{Limit: 10, Remaining: 10}
}

func (f *fakePlugin) FetchEvents(ctx context.Context, filters models.EventFilters) ([]models.NormalizedEvent, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func fakeEvents(source string, n int) []models.NormalizedEvent {
	out := make([]models.NormalizedEvent, n)
	for i := range out {
		out[i] = models.NormalizedEvent{
			Source:     source,
			ExternalID: fmt.Sprintf("%s-%d", source, i),
			Title:      fmt.Sprintf("Event %d", i),
		}
	}
	return out
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&fakePlugin{source: "alpha", enabled: true}); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	err := r.Register(&fakePlugin{source: "alpha", enabled: true})
	if !errors.Is(err, ErrDuplicateSource) {
		t.Errorf("second Register() error = %v, want ErrDuplicateSource", err)
	}
}

func TestRegistry_EnabledOrdering(t *testing.T) {
	r := NewRegistry()
	for _, p := range []*fakePlugin{
		{source: "charlie", enabled: true},
		{source: "alpha", enabled: true},
		{source: "bravo", enabled: false},
	} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	enabled := r.Enabled()
	if len(enabled) != 2 {
		t.Fatalf("Enabled() returned %d plugins, want 2", len(enabled))
	}
	if enabled[0].Source() != "alpha" || enabled[1].Source() != "charlie" {
		t.Errorf("Enabled() order = [%s %s], want [alpha charlie]",
			enabled[0].Source(), enabled[1].Source())
	}

	if got := len(r.All()); got != 3 {
		t.Errorf("All() returned %d plugins, want 3", got)
	}
}

func TestRegistry_FetchFromSourceUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.FetchFromSource(context.Background(), "nope", models.EventFilters{})
	if !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("error = %v, want ErrPluginNotFound", err)
	}
}

func TestRegistry_FetchFromSourceRecordsStats(t *testing.T) {
	r := NewRegistry()
	p := &fakePlugin{source: "alpha", enabled: true, events: fakeEvents("alpha", 4)}
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}

	events, err := r.FetchFromSource(context.Background(), "alpha", models.EventFilters{})
	if err != nil {
		t.Fatalf("FetchFromSource() error = %v", err)
	}
	if len(events) != 4 {
		t.Errorf("got %d events, want 4", len(events))
	}

	stats := r.Stats()["alpha"]
	if stats.SuccessCount != 1 || stats.EventsFetched != 4 {
		t.Errorf("stats = %+v, want 1 success / 4 events", stats)
	}
}

func TestRegistry_FetchFromAllPartialSuccess(t *testing.T) {
	r := NewRegistry()
	good := &fakePlugin{source: "good", enabled: true, events: fakeEvents("good", 2)}
	bad := &fakePlugin{source: "bad", enabled: true, err: errors.New("upstream down")}
	off := &fakePlugin{source: "off", enabled: false, events: fakeEvents("off", 2)}
	for _, p := range []*fakePlugin{good, bad, off} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	results := r.FetchFromAll(context.Background(), models.EventFilters{})

	if len(results) != 1 {
		t.Fatalf("results for %d sources, want 1", len(results))
	}
	if len(results["good"]) != 2 {
		t.Errorf("good returned %d events, want 2", len(results["good"]))
	}
	if off.fetches != 0 {
		t.Error("disabled plugin was fetched")
	}

	stats := r.Stats()
	if stats["bad"].ErrorCount != 1 {
		t.Errorf("bad ErrorCount = %d, want 1", stats["bad"].ErrorCount)
	}
	if len(stats["bad"].LastErrors) != 1 {
		t.Errorf("bad LastErrors = %v, want one entry", stats["bad"].LastErrors)
	}
}

func TestRegistry_StatsKeepTrailingErrors(t *testing.T) {
	r := NewRegistry()
	p := &fakePlugin{source: "flaky", enabled: true, err: errors.New("transient")}
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 15; i++ {
		_, _ = r.FetchFromSource(context.Background(), "flaky", models.EventFilters{})
	}

	stats := r.Stats()["flaky"]
	if stats.ErrorCount != 15 {
		t.Errorf("ErrorCount = %d, want 15", stats.ErrorCount)
	}
	if len(stats.LastErrors) != 10 {
		t.Errorf("LastErrors holds %d entries, want bounded at 10", len(stats.LastErrors))
	}
}

func TestRegistry_StatsReturnsCopies(t *testing.T) {
	r := NewRegistry()
	p := &fakePlugin{source: "alpha", enabled: true, err: errors.New("x")}
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}
	_, _ = r.FetchFromSource(context.Background(), "alpha", models.EventFilters{})

	first := r.Stats()["alpha"]
	first.LastErrors[0] = "mutated"

	if second := r.Stats()["alpha"]; second.LastErrors[0] == "mutated" {
		t.Error("Stats() shares LastErrors backing array with callers")
	}
}

func TestRegistry_ClearStats(t *testing.T) {
	r := NewRegistry()
	p := &fakePlugin{source: "alpha", enabled: true, events: fakeEvents("alpha", 1)}
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}
	_, _ = r.FetchFromSource(context.Background(), "alpha", models.EventFilters{})

	r.ClearStats()

	stats := r.Stats()["alpha"]
	if stats.SuccessCount != 0 || stats.EventsFetched != 0 {
		t.Errorf("stats after ClearStats = %+v, want zeroed", stats)
	}
}

func TestRegistry_HealthAndRateLimits(t *testing.T) {
	r := NewRegistry()
	for _, p := range []*fakePlugin{
		{source: "alpha", enabled: true},
		{source: "bravo", enabled: true, err: errors.New("down")},
	} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	health := r.HealthStatus(context.Background())
	if !health["alpha"].Healthy || health["bravo"].Healthy {
		t.Errorf("health = %+v", health)
	}

	limits := r.RateLimits()
	if len(limits) != 2 || limits["alpha"].Limit != 10 {
		t.Errorf("limits = %+v", limits)
	}
}
