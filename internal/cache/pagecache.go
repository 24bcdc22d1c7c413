// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

// Package cache provides the BadgerDB-backed page cache used by the
// scraper plugins. Cached pages carry a TTL so a listing page is fetched
// at most once per window, with persistence across restarts.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/conventus/internal/logging"
)

// pageKeyPrefix namespaces scraper page entries in the shared database.
const pageKeyPrefix = "page:"

// PageCache stores reader-proxy page text keyed by source and target URL.
type PageCache struct {
	db  *badger.DB
	ttl time.Duration
}

// Open creates or opens a BadgerDB database at path and wraps it in a
// PageCache with the given entry TTL.
func Open(path string, ttl time.Duration) (*PageCache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logger is too chatty for a cache

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open page cache: %w", err)
	}

	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &PageCache{db: db, ttl: ttl}, nil
}

// New wraps an already-open database. Used by tests and by callers that
// share one badger instance across concerns.
func New(db *badger.DB, ttl time.Duration) *PageCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &PageCache{db: db, ttl: ttl}
}

// Get returns the cached page text for key. A missing or expired entry
// reports ok=false.
func (c *PageCache) Get(ctx context.Context, key string) (string, bool) {
	var text string

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(pageKeyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			text = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false
	}
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("page cache read failed")
		return "", false
	}
	return text, true
}

// Set stores page text under key with the configured TTL.
func (c *PageCache) Set(ctx context.Context, key, value string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(pageKeyPrefix+key), []byte(value)).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("set page cache entry: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (c *PageCache) Close() error {
	return c.db.Close()
}
