// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package models

import "time"

// HealthStatus is the result of a plugin health probe. Probes never fail
// outright; failures are captured into LastError.
type HealthStatus struct {
	Healthy      bool          `json:"healthy"`
	CheckedAt    time.Time     `json:"checked_at"`
	ResponseTime time.Duration `json:"response_time_ms"`
	LastError    string        `json:"last_error,omitempty"`
}

// RateLimitStatus tracks a plugin's outbound request budget. Remaining is
// decremented on every request attempt regardless of outcome; when the
// window elapses the budget resets to Limit.
type RateLimitStatus struct {
	Limit     int           `json:"limit"`
	Remaining int           `json:"remaining"`
	ResetAt   time.Time     `json:"reset_at"`
	Window    time.Duration `json:"window"`
}

// maxTrailingErrors bounds the per-source trailing error list.
const maxTrailingErrors = 10

// SourceStats holds rolling per-source fetch counters. This is
// observability state, not transactional data.
type SourceStats struct {
	SuccessCount  int           `json:"success_count"`
	ErrorCount    int           `json:"error_count"`
	EventsFetched int           `json:"events_fetched"`
	LastRunAt     time.Time     `json:"last_run_at"`
	LastDuration  time.Duration `json:"last_duration_ms"`
	LastErrors    []string      `json:"last_errors,omitempty"`
}

// RecordSuccess updates counters after a successful fetch.
func (s *SourceStats) RecordSuccess(events int, duration time.Duration) {
	s.SuccessCount++
	s.EventsFetched += events
	s.LastRunAt = time.Now()
	s.LastDuration = duration
}

// RecordError updates counters after a failed fetch, retaining only the
// trailing errors.
func (s *SourceStats) RecordError(msg string, duration time.Duration) {
	s.ErrorCount++
	s.LastRunAt = time.Now()
	s.LastDuration = duration
	s.LastErrors = append(s.LastErrors, msg)
	if len(s.LastErrors) > maxTrailingErrors {
		s.LastErrors = s.LastErrors[len(s.LastErrors)-maxTrailingErrors:]
	}
}

// Clone returns a copy safe to hand to callers.
func (s *SourceStats) Clone() SourceStats {
	out := *s
	out.LastErrors = append([]string(nil), s.LastErrors...)
	return out
}
