// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

// Package collector accepts outcome events from callers and feeds the
// metrics aggregator. The tracking path is fail-open: events for
// unknown, stopped, or unreachable experiments are dropped silently so
// content delivery never depends on the experimentation engine.
package collector

import (
	"context"
	"errors"

	"github.com/tomtom215/experimentus/internal/aggregator"
	"github.com/tomtom215/experimentus/internal/assignment"
	"github.com/tomtom215/experimentus/internal/cache"
	"github.com/tomtom215/experimentus/internal/eventbus"
	"github.com/tomtom215/experimentus/internal/logging"
	"github.com/tomtom215/experimentus/internal/metrics"
	"github.com/tomtom215/experimentus/internal/models"
)

// Collector validates and routes tracked events.
type Collector struct {
	engine *assignment.Engine
	agg    *aggregator.Aggregator
	bus    *eventbus.Bus
	dedup  *cache.LRUCache
}

// New creates a Collector. The bus may be nil, which disables audit
// fan-out but leaves metrics collection intact.
func New(engine *assignment.Engine, agg *aggregator.Aggregator, bus *eventbus.Bus, dedup *cache.LRUCache) *Collector {
	return &Collector{
		engine: engine,
		agg:    agg,
		bus:    bus,
		dedup:  dedup,
	}
}

// Track records one outcome event. The subject's variant is derived
// from the deterministic assignment, never trusted from the caller.
// Returns the accepted event, or nil when the event was deduplicated
// or dropped. Dropping is not an error on this path.
func (c *Collector) Track(ctx context.Context, experimentID, subjectID, eventType string, eventData map[string]interface{}, idempotencyKey string) *models.TrackedEvent {
	exp, err := c.engine.Experiment(ctx, experimentID)
	if err != nil {
		if errors.Is(err, models.ErrExperimentNotFound) {
			metrics.RecordEventDropped("no_assignment")
			return nil
		}
		logging.Ctx(ctx).Warn().Err(err).
			Str("experiment_id", experimentID).
			Msg("Dropping event, experiment lookup failed")
		metrics.RecordEventDropped("fail_open")
		return nil
	}

	a := assignment.Assign(exp, subjectID)
	if a == nil {
		metrics.RecordEventDropped("no_assignment")
		return nil
	}

	if idempotencyKey != "" && c.dedup != nil && c.dedup.IsDuplicate(idempotencyKey) {
		metrics.EventsDeduplicatedTotal.Inc()
		return nil
	}

	event := models.NewTrackedEvent(experimentID, subjectID, eventType)
	event.Variant = a.Variant
	event.EventData = eventData
	event.IdempotencyKey = idempotencyKey

	// Tracking an event is also an exposure; first sight of a subject
	// counts them into the variant's user total.
	c.agg.RecordExposure(experimentID, subjectID, a.Variant)
	if eventType == exp.PrimaryMetric || exp.IsSecondaryMetric(eventType) {
		c.agg.RecordOutcome(experimentID, a.Variant, eventType)
	}
	metrics.RecordEventTracked(experimentID, eventType)

	if c.bus != nil {
		if err := c.bus.PublishEvent(ctx, event); err != nil {
			// Metrics already recorded; the audit copy is best-effort.
			logging.Ctx(ctx).Warn().Err(err).
				Str("event_id", event.EventID).
				Msg("Failed to publish event to audit bus")
		}
	}

	return event
}
