// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

// Package store provides the key/value configuration store behind the
// experiment registry and aggregator checkpoints. Values are JSON
// documents; keys are flat strings with colon-separated prefixes
// (e.g. "experiment:<id>").
//
// Two implementations are provided: BadgerStore for durable production
// use and MemoryStore for tests and ephemeral deployments.
package store

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned when a key does not exist in the store.
var ErrKeyNotFound = errors.New("key not found")

// Store is the key/value configuration store interface. All values are
// JSON-serializable; Get unmarshals into out, Set marshals value.
type Store interface {
	// Get reads the value at key into out. Returns ErrKeyNotFound when
	// the key is absent.
	Get(ctx context.Context, key string, out interface{}) error

	// Set writes value at key, replacing any existing value.
	Set(ctx context.Context, key string, value interface{}) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// ListKeys returns all keys with the given prefix, in lexical order.
	ListKeys(ctx context.Context, prefix string) ([]string, error)

	// Close releases store resources.
	Close() error
}
