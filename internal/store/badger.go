// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/experimentus/internal/metrics"
)

// BadgerStore implements Store using BadgerDB for durable storage.
// Suitable for production use with persistence across restarts.
type BadgerStore struct {
	db *badger.DB
}

// BadgerOptions configures a BadgerStore.
type BadgerOptions struct {
	// Dir is the on-disk location. Ignored when InMemory is true.
	Dir string

	// InMemory runs badger without persistence (tests, dev).
	InMemory bool

	// GCInterval is how often value-log garbage collection runs.
	// Default: 10m. Set negative to disable.
	GCInterval time.Duration
}

// NewBadgerStore opens a BadgerDB-backed store. The caller owns the
// store and must Close it.
func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.Dir).
		WithInMemory(opts.InMemory).
		WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.Dir, err)
	}

	s := &BadgerStore{db: db}

	gcInterval := opts.GCInterval
	if gcInterval == 0 {
		gcInterval = 10 * time.Minute
	}
	if gcInterval > 0 && !opts.InMemory {
		go s.gcLoop(gcInterval)
	}

	return s, nil
}

// NewBadgerStoreWithDB wraps an already-open badger database. Close is
// a no-op delegate; the caller who opened the DB closes it.
func NewBadgerStoreWithDB(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Get reads the value at key into out.
func (s *BadgerStore) Get(ctx context.Context, key string, out interface{}) error {
	start := time.Now()
	defer func() { metrics.ObserveStoreOperation("get", time.Since(start)) }()

	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrKeyNotFound
		}
		if err != nil {
			return fmt.Errorf("get %q: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
}

// Set writes value at key.
func (s *BadgerStore) Set(ctx context.Context, key string, value interface{}) error {
	start := time.Now()
	defer func() { metrics.ObserveStoreOperation("set", time.Since(start)) }()

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %q: %w", key, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), data); err != nil {
			return fmt.Errorf("set %q: %w", key, err)
		}
		return nil
	})
}

// Delete removes key. Absent keys are not an error.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	defer func() { metrics.ObserveStoreOperation("delete", time.Since(start)) }()

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete %q: %w", key, err)
		}
		return nil
	})
}

// ListKeys returns all keys with the given prefix in lexical order.
func (s *BadgerStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreOperation("list", time.Since(start)) }()

	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	return keys, nil
}

// Close closes the underlying badger database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// gcLoop runs periodic value-log garbage collection. badger returns
// ErrNoRewrite when nothing was collected, which is normal.
func (s *BadgerStore) gcLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if s.db.IsClosed() {
			return
		}
		_ = s.db.RunValueLogGC(0.5)
	}
}
