// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/experimentus/internal/aggregator"
	"github.com/tomtom215/experimentus/internal/assignment"
	"github.com/tomtom215/experimentus/internal/cache"
	"github.com/tomtom215/experimentus/internal/models"
)

type staticSource struct {
	exp *models.Experiment
	err error
}

func (s *staticSource) Get(ctx context.Context, id string) (*models.Experiment, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.exp != nil && s.exp.ID == id {
		return s.exp, nil
	}
	return nil, models.ErrExperimentNotFound
}

func runningExperiment() *models.Experiment {
	now := time.Now().UTC()
	return &models.Experiment{
		ID:           "exp_track",
		Name:         "tracking test",
		TemplateType: "video_title",
		Topic:        models.TopicAll,
		Variants: []models.Variant{
			{Name: "control", Weight: 50},
			{Name: "variant_a", Weight: 50},
		},
		Status:            models.StatusRunning,
		PrimaryMetric:     "conversion",
		SecondaryMetrics:  []string{"watch_time"},
		ActualStartDate:   &now,
		SignificanceLevel: 0.05,
		MinimumSampleSize: 100,
	}
}

func newCollector(t *testing.T, source assignment.Source) (*Collector, *aggregator.Aggregator) {
	t.Helper()
	engine := assignment.NewEngine(source, time.Minute)
	t.Cleanup(engine.Close)
	agg := aggregator.New(nil)
	dedup := cache.NewLRUCache(100, time.Minute)
	return New(engine, agg, nil, dedup), agg
}

func TestTrack_RecordsExposureAndOutcome(t *testing.T) {
	exp := runningExperiment()
	c, agg := newCollector(t, &staticSource{exp: exp})

	event := c.Track(context.Background(), "exp_track", "user_1", "conversion", nil, "")
	if event == nil {
		t.Fatal("Expected event to be accepted")
	}
	if event.Variant == "" {
		t.Error("Expected variant to be stamped from the assignment")
	}

	snap := agg.Snapshot("exp_track", "conversion")
	if snap.TotalUsers != 1 {
		t.Errorf("Expected 1 user, got %d", snap.TotalUsers)
	}
	if got := snap.Variants[event.Variant].Conversions; got != 1 {
		t.Errorf("Expected 1 conversion for %s, got %d", event.Variant, got)
	}
}

func TestTrack_SecondaryMetric(t *testing.T) {
	exp := runningExperiment()
	c, agg := newCollector(t, &staticSource{exp: exp})

	event := c.Track(context.Background(), "exp_track", "user_1", "watch_time", nil, "")
	if event == nil {
		t.Fatal("Expected event to be accepted")
	}

	snap := agg.Snapshot("exp_track", "conversion")
	vm := snap.Variants[event.Variant]
	if vm.Conversions != 0 {
		t.Errorf("Secondary metric must not count as conversion, got %d", vm.Conversions)
	}
	if vm.Secondary["watch_time"] != 1 {
		t.Errorf("Expected 1 watch_time event, got %d", vm.Secondary["watch_time"])
	}
}

func TestTrack_UnknownMetricCountsExposureOnly(t *testing.T) {
	exp := runningExperiment()
	c, agg := newCollector(t, &staticSource{exp: exp})

	if event := c.Track(context.Background(), "exp_track", "user_1", "mystery_metric", nil, ""); event == nil {
		t.Fatal("Expected event to be accepted")
	}

	snap := agg.Snapshot("exp_track", "conversion")
	if snap.TotalUsers != 1 {
		t.Errorf("Expected exposure to count, got %d users", snap.TotalUsers)
	}
	for _, vm := range snap.Variants {
		if vm.Conversions != 0 || len(vm.Secondary) != 0 {
			t.Errorf("Unknown metric must not be tallied: %+v", vm)
		}
	}
}

func TestTrack_Idempotency(t *testing.T) {
	exp := runningExperiment()
	c, agg := newCollector(t, &staticSource{exp: exp})
	ctx := context.Background()

	first := c.Track(ctx, "exp_track", "user_1", "conversion", nil, "order_42")
	if first == nil {
		t.Fatal("Expected first event to be accepted")
	}
	if dup := c.Track(ctx, "exp_track", "user_1", "conversion", nil, "order_42"); dup != nil {
		t.Error("Expected duplicate idempotency key to be dropped")
	}

	snap := agg.Snapshot("exp_track", "conversion")
	if got := snap.Variants[first.Variant].Conversions; got != 1 {
		t.Errorf("Duplicate counted: got %d conversions", got)
	}
}

func TestTrack_DroppedForUnknownExperiment(t *testing.T) {
	c, agg := newCollector(t, &staticSource{})

	if event := c.Track(context.Background(), "exp_missing", "user_1", "conversion", nil, ""); event != nil {
		t.Errorf("Expected drop for unknown experiment, got %+v", event)
	}
	if got := agg.Snapshot("exp_missing", "conversion").TotalUsers; got != 0 {
		t.Errorf("Dropped event still counted: %d users", got)
	}
}

func TestTrack_DroppedForStoppedExperiment(t *testing.T) {
	exp := runningExperiment()
	exp.Status = models.StatusCompleted
	c, _ := newCollector(t, &staticSource{exp: exp})

	if event := c.Track(context.Background(), "exp_track", "user_1", "conversion", nil, ""); event != nil {
		t.Errorf("Expected drop for completed experiment, got %+v", event)
	}
}

func TestTrack_FailOpenOnStorageError(t *testing.T) {
	c, _ := newCollector(t, &staticSource{err: errors.New("store down")})

	if event := c.Track(context.Background(), "exp_track", "user_1", "conversion", nil, ""); event != nil {
		t.Errorf("Expected drop when storage is down, got %+v", event)
	}
}
