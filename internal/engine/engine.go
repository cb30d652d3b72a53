// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

// Package engine composes the registry, assignment engine, collector,
// aggregator, analyzer, and recommender behind the public operations:
// create, start, stop, assign, track, results.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/experimentus/internal/aggregator"
	"github.com/tomtom215/experimentus/internal/assignment"
	"github.com/tomtom215/experimentus/internal/collector"
	"github.com/tomtom215/experimentus/internal/logging"
	"github.com/tomtom215/experimentus/internal/metrics"
	"github.com/tomtom215/experimentus/internal/models"
	"github.com/tomtom215/experimentus/internal/recommend"
	"github.com/tomtom215/experimentus/internal/registry"
	"github.com/tomtom215/experimentus/internal/stats"
)

// Engine is the experimentation facade. All operations are safe for
// concurrent use.
type Engine struct {
	registry  *registry.Registry
	assign    *assignment.Engine
	agg       *aggregator.Aggregator
	collector *collector.Collector
	analyzer  *stats.Analyzer
	clock     func() time.Time
}

// New wires an Engine from its components.
func New(reg *registry.Registry, assign *assignment.Engine, agg *aggregator.Aggregator, col *collector.Collector) *Engine {
	return &Engine{
		registry:  reg,
		assign:    assign,
		agg:       agg,
		collector: col,
		analyzer:  stats.NewAnalyzer(),
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the engine clock. Test hook.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// CreateExperiment validates and persists a new draft experiment.
func (e *Engine) CreateExperiment(ctx context.Context, cfg registry.Config) (*models.Experiment, error) {
	exp, err := e.registry.Create(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().
		Str("experiment_id", exp.ID).
		Str("name", exp.Name).
		Int("variants", len(exp.Variants)).
		Msg("Experiment created")
	return exp, nil
}

// StartExperiment transitions a draft experiment to running. Any
// counters left over from earlier test traffic are reset so the run
// starts clean. Returns a *models.StateError if the experiment is not
// in draft.
func (e *Engine) StartExperiment(ctx context.Context, id string) (*models.Experiment, error) {
	exp, err := e.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := exp.Start(e.clock()); err != nil {
		return nil, err
	}

	e.agg.Reset(ctx, id)
	if err := e.registry.Save(ctx, exp); err != nil {
		return nil, err
	}
	e.assign.Invalidate(id)
	metrics.ExperimentsStarted.Inc()

	logging.Ctx(ctx).Info().Str("experiment_id", id).Msg("Experiment started")
	return exp, nil
}

// StopExperiment transitions a running experiment to completed,
// freezing the final metrics, analysis, and recommendation into the
// experiment record. Returns a *models.StateError if the experiment is
// not running.
func (e *Engine) StopExperiment(ctx context.Context, id, reason string) (*models.Experiment, error) {
	exp, err := e.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Snapshot before the transition so the frozen results reflect the
	// experiment exactly as it stopped.
	snap := e.agg.Snapshot(id, exp.PrimaryMetric)
	analysis := e.analyzer.Analyze(exp, snap)
	final := &models.FinalResults{
		StopReason:     reason,
		Metrics:        snap,
		Analysis:       analysis,
		Recommendation: recommend.Recommend(exp, snap, analysis),
		ComputedAt:     e.clock(),
	}

	if err := exp.Complete(e.clock(), final); err != nil {
		return nil, err
	}
	if err := e.registry.Save(ctx, exp); err != nil {
		return nil, err
	}
	e.assign.Invalidate(id)
	metrics.ExperimentsCompleted.Inc()

	logging.Ctx(ctx).Info().
		Str("experiment_id", id).
		Str("reason", reason).
		Str("recommendation", final.Recommendation.Action).
		Msg("Experiment stopped")
	return exp, nil
}

// GetUserAssignment resolves the deterministic variant assignment for a
// subject. Returns nil for draft, completed, unknown, or unreachable
// experiments and for subjects excluded by targeting; callers fall back
// to default content on nil. Seeing a subject here counts them into the
// variant's exposure totals.
func (e *Engine) GetUserAssignment(ctx context.Context, experimentID, subjectID string) *models.Assignment {
	a := e.assign.AssignByID(ctx, experimentID, subjectID)
	if a == nil {
		return nil
	}
	e.agg.RecordExposure(experimentID, subjectID, a.Variant)
	return a
}

// TrackEvent records an outcome event. Dropped and deduplicated events
// return nil; the tracking path never errors.
func (e *Engine) TrackEvent(ctx context.Context, experimentID, subjectID, eventType string, eventData map[string]interface{}, idempotencyKey string) *models.TrackedEvent {
	return e.collector.Track(ctx, experimentID, subjectID, eventType, eventData, idempotencyKey)
}

// GetExperimentResults returns the experiment with its metrics,
// analysis, and recommendation. Completed experiments serve the frozen
// final results; running and draft experiments are computed live.
func (e *Engine) GetExperimentResults(ctx context.Context, id string) (*models.ExperimentResults, error) {
	exp, err := e.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if exp.Status == models.StatusCompleted && exp.FinalResults != nil {
		return &models.ExperimentResults{
			Experiment:     exp,
			Metrics:        exp.FinalResults.Metrics,
			Analysis:       exp.FinalResults.Analysis,
			Recommendation: exp.FinalResults.Recommendation,
		}, nil
	}

	snap := e.agg.Snapshot(id, exp.PrimaryMetric)
	analysis := e.analyzer.Analyze(exp, snap)
	return &models.ExperimentResults{
		Experiment:     exp,
		Metrics:        snap,
		Analysis:       analysis,
		Recommendation: recommend.Recommend(exp, snap, analysis),
	}, nil
}

// GetExperiment returns the experiment definition by ID.
func (e *Engine) GetExperiment(ctx context.Context, id string) (*models.Experiment, error) {
	return e.registry.Get(ctx, id)
}

// ListExperiments returns all experiment definitions.
func (e *Engine) ListExperiments(ctx context.Context) ([]*models.Experiment, error) {
	return e.registry.List(ctx)
}

// Checkpoint persists the aggregator's counters. Called periodically
// and on shutdown.
func (e *Engine) Checkpoint(ctx context.Context) error {
	if err := e.agg.Checkpoint(ctx); err != nil {
		return fmt.Errorf("checkpoint metrics: %w", err)
	}
	return nil
}
