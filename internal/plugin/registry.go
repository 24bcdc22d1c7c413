// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/conventus/internal/logging"
	"github.com/tomtom215/conventus/internal/metrics"
	"github.com/tomtom215/conventus/internal/models"
)

// Registry owns the set of active plugins and mediates all access to them.
// Registries are explicitly constructed and injected (no process-wide
// singleton) so tests can build isolated instances. The plugin map lives
// for the process lifetime and is re-populated at startup.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	stats   map[string]*models.SourceStats
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
		stats:   make(map[string]*models.SourceStats),
	}
}

// Register adds a plugin. Registration is a one-time setup action, not
// idempotent: a second registration for the same source fails with
// ErrDuplicateSource.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	source := p.Source()
	if _, exists := r.plugins[source]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSource, source)
	}

	r.plugins[source] = p
	r.stats[source] = &models.SourceStats{}
	logging.Info().Str("source", source).Bool("enabled", p.Enabled()).Msg("plugin registered")
	return nil
}

// Unregister removes a plugin and its stats.
func (r *Registry) Unregister(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.plugins, source)
	delete(r.stats, source)
}

// Has reports whether a plugin is registered for source.
func (r *Registry) Has(source string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.plugins[source]
	return ok
}

// Get returns the plugin registered for source.
func (r *Registry) Get(source string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[source]
	return p, ok
}

// All returns every registered plugin, ordered by source for determinism.
func (r *Registry) All() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(func(Plugin) bool { return true })
}

// Enabled returns the plugins whose own enabled flag is set.
func (r *Registry) Enabled() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(func(p Plugin) bool { return p.Enabled() })
}

// sortedLocked collects plugins matching keep in source order. Caller must
// hold at least a read lock.
func (r *Registry) sortedLocked(keep func(Plugin) bool) []Plugin {
	out := make([]Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source() < out[j].Source() })
	return out
}

// FetchFromSource delegates a fetch to one plugin, recording timing and
// outcome into its stats. It fails with ErrPluginNotFound for unknown
// sources — a caller-input error, not a transient fault.
func (r *Registry) FetchFromSource(ctx context.Context, source string, filters models.EventFilters) ([]models.NormalizedEvent, error) {
	p, ok := r.Get(source)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, source)
	}

	start := time.Now()
	events, err := p.FetchEvents(ctx, filters)
	duration := time.Since(start)
	metrics.PluginFetchDuration.WithLabelValues(source).Observe(duration.Seconds())

	r.mu.Lock()
	stats := r.stats[source]
	if stats == nil {
		stats = &models.SourceStats{}
		r.stats[source] = stats
	}
	if err != nil {
		stats.RecordError(err.Error(), duration)
	} else {
		stats.RecordSuccess(len(events), duration)
	}
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return events, nil
}

// FetchFromAll fans out across all enabled plugins. A single plugin's
// failure is caught and recorded into its stats without aborting the
// others; partial success is the normal case.
func (r *Registry) FetchFromAll(ctx context.Context, filters models.EventFilters) map[string][]models.NormalizedEvent {
	results := make(map[string][]models.NormalizedEvent)

	for _, p := range r.Enabled() {
		source := p.Source()
		events, err := r.FetchFromSource(ctx, source, filters)
		if err != nil {
			logging.Warn().Err(err).Str("source", source).Msg("fetch failed, continuing with remaining plugins")
			continue
		}
		results[source] = events
	}

	return results
}

// HealthStatus runs health checks across all plugins, capturing per-plugin
// failures into the returned map rather than propagating them.
func (r *Registry) HealthStatus(ctx context.Context) map[string]models.HealthStatus {
	out := make(map[string]models.HealthStatus)
	for _, p := range r.All() {
		out[p.Source()] = p.HealthCheck(ctx)
	}
	return out
}

// RateLimits returns rate-limit snapshots for all plugins.
func (r *Registry) RateLimits() map[string]models.RateLimitStatus {
	out := make(map[string]models.RateLimitStatus)
	for _, p := range r.All() {
		out[p.Source()] = p.RateLimitStatus()
	}
	return out
}

// Stats returns a copy of per-source fetch statistics.
func (r *Registry) Stats() map[string]models.SourceStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]models.SourceStats, len(r.stats))
	for source, s := range r.stats {
		out[source] = s.Clone()
	}
	return out
}

// ClearStats resets all per-source statistics.
func (r *Registry) ClearStats() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for source := range r.stats {
		r.stats[source] = &models.SourceStats{}
	}
}
