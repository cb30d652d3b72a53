// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

// Package audit persists an append-only log of tracked events per
// experiment for debugging and offline inspection. Writes are
// best-effort from the event pipeline; a failed append never affects
// metrics.
package audit

import (
	"context"
	"fmt"

	"github.com/tomtom215/experimentus/internal/metrics"
	"github.com/tomtom215/experimentus/internal/models"
	"github.com/tomtom215/experimentus/internal/store"
)

// eventKeyPrefix namespaces audit entries in the backing store.
const eventKeyPrefix = "event:"

// DefaultRecentLimit caps Recent queries with no explicit limit.
const DefaultRecentLimit = 100

// Log is the audit trail for tracked events.
type Log struct {
	store store.Store
}

// NewLog creates a Log over the given key-value store.
func NewLog(st store.Store) *Log {
	return &Log{store: st}
}

// Append records one event. Keys embed the nanosecond timestamp so a
// prefix scan returns events in arrival order; the event ID breaks
// ties within the same nanosecond.
func (l *Log) Append(ctx context.Context, event *models.TrackedEvent) error {
	key := fmt.Sprintf("%s%s:%020d:%s", eventKeyPrefix, event.ExperimentID, event.Timestamp.UnixNano(), event.EventID)
	if err := l.store.Set(ctx, key, event); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	metrics.AuditEventsAppended.Inc()
	return nil
}

// Recent returns up to limit of the newest events for an experiment,
// newest first. A non-positive limit applies DefaultRecentLimit.
func (l *Log) Recent(ctx context.Context, experimentID string, limit int) ([]models.TrackedEvent, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	keys, err := l.store.ListKeys(ctx, eventKeyPrefix+experimentID+":")
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}

	if len(keys) > limit {
		keys = keys[len(keys)-limit:]
	}

	events := make([]models.TrackedEvent, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		var event models.TrackedEvent
		if err := l.store.Get(ctx, keys[i], &event); err != nil {
			// Deleted between list and read; skip.
			continue
		}
		events = append(events, event)
	}
	return events, nil
}
