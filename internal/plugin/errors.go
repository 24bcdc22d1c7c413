// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package plugin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorKind classifies a fetch failure. Only retryable kinds consume retry
// budget; terminal kinds propagate immediately.
type ErrorKind string

// Error kinds.
const (
	KindRateLimited ErrorKind = "rate_limited"
	KindTimeout     ErrorKind = "timeout"
	KindNotFound    ErrorKind = "not_found"
	KindAuthError   ErrorKind = "auth_error"
	KindUnknown     ErrorKind = "unknown"
)

// Retryable reports whether failures of this kind should be retried.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindRateLimited, KindTimeout, KindUnknown:
		return true
	default:
		return false
	}
}

// Registry sentinel errors.
var (
	// ErrDuplicateSource is returned when registering a source twice.
	ErrDuplicateSource = errors.New("plugin already registered for source")

	// ErrPluginNotFound is returned when dispatching to an unknown source.
	ErrPluginNotFound = errors.New("no plugin registered for source")

	// ErrConfigInvalid is returned when a plugin's configuration is
	// incomplete (disabled, or missing a required credential).
	ErrConfigInvalid = errors.New("invalid plugin configuration")
)

// Error is a classified fetch failure from one source.
type Error struct {
	Source string
	Kind   ErrorKind
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err as a classified plugin error. The kind is classified
// from err unless already a *Error.
func NewError(source string, kind ErrorKind, err error) *Error {
	return &Error{Source: source, Kind: kind, Err: err}
}

// classificationRule maps a message substring to an error kind. Most
// upstream platforms (and all scrapers) expose no structured error codes,
// so classification is an explicit, testable, data-driven table over
// message content rather than ad hoc string matching.
type classificationRule struct {
	substring string
	kind      ErrorKind
}

// classificationTable is evaluated in order; the first match wins. Keep
// more specific substrings before generic ones.
var classificationTable = []classificationRule{
	{"rate limit", KindRateLimited},
	{"too many requests", KindRateLimited},
	{"429", KindRateLimited},
	{"deadline exceeded", KindTimeout},
	{"context canceled", KindTimeout},
	{"timeout", KindTimeout},
	{"timed out", KindTimeout},
	{"unauthorized", KindAuthError},
	{"forbidden", KindAuthError},
	{"invalid token", KindAuthError},
	{"invalid api key", KindAuthError},
	{"401", KindAuthError},
	{"403", KindAuthError},
	{"not found", KindNotFound},
	{"404", KindNotFound},
}

// Classify infers the error kind for err. Typed *Error values keep their
// kind; stdlib timeout errors are recognized structurally; everything else
// falls through the classification table, defaulting to KindUnknown.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTimeout
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range classificationTable {
		if strings.Contains(msg, rule.substring) {
			return rule.kind
		}
	}

	return KindUnknown
}

// ClassifyStatus maps an HTTP status code to an error kind. ok is false for
// success statuses.
func ClassifyStatus(code int) (kind ErrorKind, ok bool) {
	switch {
	case code >= 200 && code < 300:
		return "", false
	case code == http.StatusTooManyRequests:
		return KindRateLimited, true
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return KindTimeout, true
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuthError, true
	case code == http.StatusNotFound || code == http.StatusGone:
		return KindNotFound, true
	default:
		return KindUnknown, true
	}
}
