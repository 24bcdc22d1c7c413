// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package models

import "errors"

// ErrNotFound marks a lookup for a record that does not exist. Shared
// across storage and consumers so callers can distinguish absence from
// failure without binding to the storage backend.
var ErrNotFound = errors.New("not found")
