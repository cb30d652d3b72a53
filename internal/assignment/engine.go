// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package assignment

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/experimentus/internal/cache"
	"github.com/tomtom215/experimentus/internal/logging"
	"github.com/tomtom215/experimentus/internal/metrics"
	"github.com/tomtom215/experimentus/internal/models"
)

// Source provides experiment definitions. Satisfied by *registry.Registry.
type Source interface {
	Get(ctx context.Context, id string) (*models.Experiment, error)
}

// DefaultCacheTTL bounds config staleness on the hot path. Assignment
// from a briefly stale config is still deterministic and reproducible.
const DefaultCacheTTL = 2 * time.Minute

// Engine computes variant assignments. The hot path reads experiment
// config through a TTL cache and a circuit breaker: when the config
// store is unreachable the engine fails open (no assignment) rather
// than surfacing an error into the product flow.
type Engine struct {
	source  Source
	cache   *cache.Cache
	breaker *gobreaker.CircuitBreaker[*models.Experiment]
}

// NewEngine creates an assignment engine. cacheTTL <= 0 uses
// DefaultCacheTTL.
func NewEngine(source Source, cacheTTL time.Duration) *Engine {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}

	breaker := gobreaker.NewCircuitBreaker[*models.Experiment](gobreaker.Settings{
		Name:        "config-store",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetBreakerOpen(to == gobreaker.StateOpen)
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("config store circuit breaker state change")
		},
	})

	return &Engine{
		source:  source,
		cache:   cache.New(cacheTTL),
		breaker: breaker,
	}
}

// Experiment loads an experiment through the cache and breaker.
// Returns models.ErrExperimentNotFound for unknown IDs and the
// underlying storage error (or gobreaker.ErrOpenState) when the store
// is unavailable.
func (e *Engine) Experiment(ctx context.Context, id string) (*models.Experiment, error) {
	if cached, ok := e.cache.Get(id); ok {
		return cached.(*models.Experiment), nil
	}

	exp, err := e.breaker.Execute(func() (*models.Experiment, error) {
		exp, err := e.source.Get(ctx, id)
		if errors.Is(err, models.ErrExperimentNotFound) {
			// Not a store failure; don't trip the breaker.
			return nil, nil
		}
		return exp, err
	})
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, models.ErrExperimentNotFound
	}

	e.cache.Set(id, exp)
	return exp, nil
}

// Invalidate drops the cached config for an experiment. Called on
// lifecycle transitions so stopped experiments stop assigning promptly.
func (e *Engine) Invalidate(id string) {
	e.cache.Delete(id)
}

// Close releases the config cache.
func (e *Engine) Close() {
	e.cache.Stop()
}

// AssignByID resolves the experiment and computes the assignment.
// Fail-open by design: any storage failure returns nil (logged) so the
// embedding product flow is never broken by the experimentation engine.
func (e *Engine) AssignByID(ctx context.Context, experimentID, subjectID string) *models.Assignment {
	exp, err := e.Experiment(ctx, experimentID)
	if err != nil {
		if !errors.Is(err, models.ErrExperimentNotFound) {
			logging.Ctx(ctx).Warn().
				Err(err).
				Str("experiment_id", experimentID).
				Msg("config store unavailable, failing open")
		}
		metrics.RecordAssignmentSkipped("fail_open")
		return nil
	}
	return Assign(exp, subjectID)
}

// Assign computes the variant for a subject. Pure function: nil when
// the experiment is not running or the subject fails targeting;
// otherwise deterministic in (experiment ID, subject ID, weights).
func Assign(exp *models.Experiment, subjectID string) *models.Assignment {
	if !exp.IsRunning() {
		metrics.RecordAssignmentSkipped("not_running")
		return nil
	}
	if !Targeted(exp.Targeting, exp.ID, subjectID) {
		metrics.RecordAssignmentSkipped("targeting_excluded")
		return nil
	}

	bucket := Bucket(exp.ID, subjectID)

	// Walk variants in configured order accumulating weight boundaries.
	// With weights summing to 100 every bucket lands in some variant;
	// the first variant is the documented fallback if rounding ever
	// leaves a gap.
	variant := exp.Variants[0].Name
	cumulative := 0
	for _, v := range exp.Variants {
		cumulative += v.Weight
		if bucket < cumulative {
			variant = v.Name
			break
		}
	}

	metrics.RecordAssignment(exp.ID, variant)
	return &models.Assignment{
		ExperimentID: exp.ID,
		SubjectID:    subjectID,
		Variant:      variant,
		Bucket:       bucket,
		AssignedAt:   time.Now().UTC(),
	}
}
