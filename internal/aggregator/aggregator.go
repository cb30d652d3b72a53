// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

// Package aggregator maintains in-memory per-experiment counters for
// exposures and metric events. Counters are mutex-guarded and can be
// checkpointed to a key-value store so a restart does not zero running
// experiments.
package aggregator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/experimentus/internal/logging"
	"github.com/tomtom215/experimentus/internal/models"
	"github.com/tomtom215/experimentus/internal/store"
)

// metricsKeyPrefix namespaces checkpoint entries in the store.
const metricsKeyPrefix = "metrics:"

// variantCounters holds the raw tallies for one variant.
type variantCounters struct {
	Users  int64            `json:"users"`
	Events map[string]int64 `json:"events"`
}

// experimentCounters holds all tallies for one experiment. Seen dedups
// subjects so repeated exposures of the same subject count once.
type experimentCounters struct {
	Seen     map[string]struct{}         `json:"-"`
	Variants map[string]*variantCounters `json:"variants"`
}

// checkpointState is the persisted form of experimentCounters. The
// seen-set is flattened to a sorted-insensitive slice for JSON.
type checkpointState struct {
	Seen     []string                    `json:"seen"`
	Variants map[string]*variantCounters `json:"variants"`
	SavedAt  time.Time                   `json:"saved_at"`
}

// Aggregator accumulates metrics for all experiments. Safe for
// concurrent use. The store is optional; with a nil store Checkpoint
// and Restore are no-ops.
type Aggregator struct {
	mu          sync.RWMutex
	experiments map[string]*experimentCounters
	store       store.Store
	clock       func() time.Time
}

// New creates an Aggregator backed by the given store for
// checkpointing. Pass nil for a purely in-memory aggregator.
func New(st store.Store) *Aggregator {
	return &Aggregator{
		experiments: make(map[string]*experimentCounters),
		store:       st,
		clock:       time.Now,
	}
}

// RecordExposure notes that a subject saw a variant. The first call
// for a subject increments the variant's user count; repeats are
// deduplicated and do not change any tally.
func (a *Aggregator) RecordExposure(experimentID, subjectID, variant string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ec := a.countersLocked(experimentID)
	if _, seen := ec.Seen[subjectID]; seen {
		return
	}
	ec.Seen[subjectID] = struct{}{}
	a.variantLocked(ec, variant).Users++
}

// RecordOutcome increments the named metric counter for a variant.
// Metric names are counted as-is; the primary/secondary split is
// applied at snapshot time.
func (a *Aggregator) RecordOutcome(experimentID, variant, metric string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	vc := a.variantLocked(a.countersLocked(experimentID), variant)
	vc.Events[metric]++
}

// Snapshot returns a point-in-time copy of the experiment's metrics.
// The primary metric is surfaced as Conversions and the conversion
// rate; every other counter lands in Secondary. Unknown experiments
// yield an empty snapshot.
func (a *Aggregator) Snapshot(experimentID, primaryMetric string) *models.MetricsSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap := &models.MetricsSnapshot{
		ExperimentID: experimentID,
		TakenAt:      a.clock().UTC(),
		Variants:     make(map[string]models.VariantMetrics),
	}

	ec, ok := a.experiments[experimentID]
	if !ok {
		return snap
	}

	snap.TotalUsers = int64(len(ec.Seen))
	for name, vc := range ec.Variants {
		vm := models.VariantMetrics{
			Variant:     name,
			TotalUsers:  vc.Users,
			Conversions: vc.Events[primaryMetric],
			Secondary:   make(map[string]int64),
		}
		if vm.TotalUsers > 0 {
			vm.ConversionRate = float64(vm.Conversions) / float64(vm.TotalUsers)
		}
		for metric, count := range vc.Events {
			if metric != primaryMetric {
				vm.Secondary[metric] = count
			}
		}
		snap.Variants[name] = vm
	}
	return snap
}

// Reset drops all counters for an experiment and deletes its
// checkpoint. Called when an experiment starts so a draft restarted
// after test traffic begins clean.
func (a *Aggregator) Reset(ctx context.Context, experimentID string) {
	a.mu.Lock()
	delete(a.experiments, experimentID)
	a.mu.Unlock()

	if a.store == nil {
		return
	}
	if err := a.store.Delete(ctx, metricsKeyPrefix+experimentID); err != nil {
		logging.Warn().Err(err).Str("experiment_id", experimentID).Msg("Failed to delete metrics checkpoint")
	}
}

// Checkpoint persists every experiment's counters to the store.
func (a *Aggregator) Checkpoint(ctx context.Context) error {
	if a.store == nil {
		return nil
	}

	a.mu.RLock()
	states := make(map[string]*checkpointState, len(a.experiments))
	for id, ec := range a.experiments {
		state := &checkpointState{
			Seen:     make([]string, 0, len(ec.Seen)),
			Variants: make(map[string]*variantCounters, len(ec.Variants)),
			SavedAt:  a.clock().UTC(),
		}
		for subject := range ec.Seen {
			state.Seen = append(state.Seen, subject)
		}
		for name, vc := range ec.Variants {
			events := make(map[string]int64, len(vc.Events))
			for metric, count := range vc.Events {
				events[metric] = count
			}
			state.Variants[name] = &variantCounters{Users: vc.Users, Events: events}
		}
		states[id] = state
	}
	a.mu.RUnlock()

	var errs []error
	for id, state := range states {
		if err := a.store.Set(ctx, metricsKeyPrefix+id, state); err != nil {
			errs = append(errs, err)
			logging.Error().Err(err).Str("experiment_id", id).Msg("Failed to checkpoint metrics")
		}
	}
	return errors.Join(errs...)
}

// Restore loads all checkpointed counters from the store, replacing
// any in-memory state for the experiments found.
func (a *Aggregator) Restore(ctx context.Context) error {
	if a.store == nil {
		return nil
	}

	keys, err := a.store.ListKeys(ctx, metricsKeyPrefix)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, key := range keys {
		var state checkpointState
		if err := a.store.Get(ctx, key, &state); err != nil {
			if errors.Is(err, store.ErrKeyNotFound) {
				continue
			}
			return err
		}

		ec := &experimentCounters{
			Seen:     make(map[string]struct{}, len(state.Seen)),
			Variants: state.Variants,
		}
		for _, subject := range state.Seen {
			ec.Seen[subject] = struct{}{}
		}
		if ec.Variants == nil {
			ec.Variants = make(map[string]*variantCounters)
		}
		for _, vc := range ec.Variants {
			if vc.Events == nil {
				vc.Events = make(map[string]int64)
			}
		}
		a.experiments[strings.TrimPrefix(key, metricsKeyPrefix)] = ec
	}

	logging.Info().Int("experiments", len(keys)).Msg("Restored metrics checkpoints")
	return nil
}

func (a *Aggregator) countersLocked(experimentID string) *experimentCounters {
	ec, ok := a.experiments[experimentID]
	if !ok {
		ec = &experimentCounters{
			Seen:     make(map[string]struct{}),
			Variants: make(map[string]*variantCounters),
		}
		a.experiments[experimentID] = ec
	}
	return ec
}

func (a *Aggregator) variantLocked(ec *experimentCounters, variant string) *variantCounters {
	vc, ok := ec.Variants[variant]
	if !ok {
		vc = &variantCounters{Events: make(map[string]int64)}
		ec.Variants[variant] = vc
	}
	return vc
}
