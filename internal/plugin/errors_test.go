// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package plugin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"rate limit message", errors.New("API rate limit exceeded"), KindRateLimited},
		{"too many requests", errors.New("HTTP 429 Too Many Requests"), KindRateLimited},
		{"timeout message", errors.New("request timed out"), KindTimeout},
		{"deadline exceeded wrapped", fmt.Errorf("fetch: %w", context.DeadlineExceeded), KindTimeout},
		{"unauthorized", errors.New("401 Unauthorized"), KindAuthError},
		{"forbidden", errors.New("access forbidden for token"), KindAuthError},
		{"invalid token", errors.New("invalid token supplied"), KindAuthError},
		{"not found", errors.New("resource not found"), KindNotFound},
		{"unclassified", errors.New("connection reset by peer"), KindUnknown},
		{"nil", nil, KindUnknown},
		{
			name: "typed error keeps its kind",
			err:  NewError("eventbrite", KindNotFound, errors.New("rate limit text would mislead")),
			want: KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorKind_Retryable(t *testing.T) {
	retryable := map[ErrorKind]bool{
		KindRateLimited: true,
		KindTimeout:     true,
		KindUnknown:     true,
		KindNotFound:    false,
		KindAuthError:   false,
	}
	for kind, want := range retryable {
		if got := kind.Retryable(); got != want {
			t.Errorf("%v.Retryable() = %v, want %v", kind, got, want)
		}
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code     int
		wantKind ErrorKind
		wantBad  bool
	}{
		{http.StatusOK, "", false},
		{http.StatusNoContent, "", false},
		{http.StatusTooManyRequests, KindRateLimited, true},
		{http.StatusUnauthorized, KindAuthError, true},
		{http.StatusForbidden, KindAuthError, true},
		{http.StatusNotFound, KindNotFound, true},
		{http.StatusGatewayTimeout, KindTimeout, true},
		{http.StatusInternalServerError, KindUnknown, true},
	}

	for _, tt := range tests {
		kind, bad := ClassifyStatus(tt.code)
		if kind != tt.wantKind || bad != tt.wantBad {
			t.Errorf("ClassifyStatus(%d) = (%v, %v), want (%v, %v)",
				tt.code, kind, bad, tt.wantKind, tt.wantBad)
		}
	}
}

func TestError_Unwrap(t *testing.T) {
	base := errors.New("boom")
	err := NewError("meetup", KindUnknown, base)

	if !errors.Is(err, base) {
		t.Error("errors.Is should find the wrapped error")
	}

	var perr *Error
	if !errors.As(fmt.Errorf("outer: %w", err), &perr) {
		t.Fatal("errors.As should find *Error through wrapping")
	}
	if perr.Source != "meetup" {
		t.Errorf("Source = %q, want meetup", perr.Source)
	}
}
