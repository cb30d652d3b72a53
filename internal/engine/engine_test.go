// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/experimentus/internal/aggregator"
	"github.com/tomtom215/experimentus/internal/assignment"
	"github.com/tomtom215/experimentus/internal/cache"
	"github.com/tomtom215/experimentus/internal/collector"
	"github.com/tomtom215/experimentus/internal/models"
	"github.com/tomtom215/experimentus/internal/registry"
	"github.com/tomtom215/experimentus/internal/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	st := store.NewMemoryStore()
	reg := registry.New(st)
	assign := assignment.NewEngine(reg, time.Minute)
	t.Cleanup(assign.Close)
	agg := aggregator.New(nil)
	col := collector.New(assign, agg, nil, cache.NewLRUCache(1000, time.Minute))
	return New(reg, assign, agg, col)
}

func titleConfig() registry.Config {
	return registry.Config{
		Name:         "thumbnail style test",
		TemplateType: "video_title",
		Variants: []models.Variant{
			{Name: "control", Weight: 50},
			{Name: "variant_a", Weight: 50},
		},
	}
}

func TestLifecycle(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	exp, err := e.CreateExperiment(ctx, titleConfig())
	if err != nil {
		t.Fatalf("CreateExperiment failed: %v", err)
	}
	if exp.Status != models.StatusDraft {
		t.Errorf("Expected draft, got %s", exp.Status)
	}

	// Draft experiments assign nobody.
	if a := e.GetUserAssignment(ctx, exp.ID, "user_1"); a != nil {
		t.Errorf("Expected nil assignment for draft, got %+v", a)
	}

	started, err := e.StartExperiment(ctx, exp.ID)
	if err != nil {
		t.Fatalf("StartExperiment failed: %v", err)
	}
	if started.Status != models.StatusRunning || started.ActualStartDate == nil {
		t.Errorf("Start did not transition properly: %+v", started)
	}

	// Starting again is an invalid transition.
	_, err = e.StartExperiment(ctx, exp.ID)
	var stateErr *models.StateError
	if !errors.As(err, &stateErr) {
		t.Errorf("Expected StateError on double start, got %v", err)
	}

	if a := e.GetUserAssignment(ctx, exp.ID, "user_1"); a == nil {
		t.Error("Expected assignment for running experiment")
	}

	stopped, err := e.StopExperiment(ctx, exp.ID, "manual")
	if err != nil {
		t.Fatalf("StopExperiment failed: %v", err)
	}
	if stopped.Status != models.StatusCompleted || stopped.FinalResults == nil {
		t.Errorf("Stop did not freeze results: %+v", stopped)
	}
	if stopped.FinalResults.StopReason != "manual" {
		t.Errorf("Stop reason lost: %q", stopped.FinalResults.StopReason)
	}

	// Stopping again is an invalid transition.
	if _, err := e.StopExperiment(ctx, exp.ID, "again"); !errors.As(err, &stateErr) {
		t.Errorf("Expected StateError on double stop, got %v", err)
	}

	// Completed experiments assign nobody.
	if a := e.GetUserAssignment(ctx, exp.ID, "user_2"); a != nil {
		t.Errorf("Expected nil assignment after stop, got %+v", a)
	}
}

func TestStopDraftFails(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	exp, err := e.CreateExperiment(ctx, titleConfig())
	if err != nil {
		t.Fatalf("CreateExperiment failed: %v", err)
	}

	_, err = e.StopExperiment(ctx, exp.ID, "premature")
	var stateErr *models.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("Expected StateError stopping a draft, got %v", err)
	}
	if stateErr.Current != models.StatusDraft {
		t.Errorf("StateError carries wrong status: %s", stateErr.Current)
	}
}

func TestUnknownExperiment(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.StartExperiment(ctx, "exp_missing"); !errors.Is(err, models.ErrExperimentNotFound) {
		t.Errorf("Expected not-found starting unknown experiment, got %v", err)
	}
	if _, err := e.GetExperimentResults(ctx, "exp_missing"); !errors.Is(err, models.ErrExperimentNotFound) {
		t.Errorf("Expected not-found for unknown results, got %v", err)
	}
	if a := e.GetUserAssignment(ctx, "exp_missing", "user_1"); a != nil {
		t.Errorf("Expected nil assignment for unknown experiment, got %+v", a)
	}
}

func TestAssignmentCountsExposure(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	exp, _ := e.CreateExperiment(ctx, titleConfig())
	if _, err := e.StartExperiment(ctx, exp.ID); err != nil {
		t.Fatalf("StartExperiment failed: %v", err)
	}

	// Repeated assignment of the same subject counts once.
	for i := 0; i < 5; i++ {
		if a := e.GetUserAssignment(ctx, exp.ID, "user_1"); a == nil {
			t.Fatal("Expected assignment")
		}
	}

	results, err := e.GetExperimentResults(ctx, exp.ID)
	if err != nil {
		t.Fatalf("GetExperimentResults failed: %v", err)
	}
	if results.Metrics.TotalUsers != 1 {
		t.Errorf("Expected 1 exposed user, got %d", results.Metrics.TotalUsers)
	}
}

func TestEndToEnd(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	exp, err := e.CreateExperiment(ctx, registry.Config{
		Name:         "intro hook test",
		TemplateType: "video_script",
		Variants: []models.Variant{
			{Name: "control", Weight: 60},
			{Name: "variant_a", Weight: 40},
		},
	})
	if err != nil {
		t.Fatalf("CreateExperiment failed: %v", err)
	}
	if _, err := e.StartExperiment(ctx, exp.ID); err != nil {
		t.Fatalf("StartExperiment failed: %v", err)
	}

	// Assign 1000 distinct subjects and remember who landed where.
	byVariant := map[string][]string{}
	for i := 0; i < 1000; i++ {
		subject := fmt.Sprintf("subject_%d", i)
		a := e.GetUserAssignment(ctx, exp.ID, subject)
		if a == nil {
			t.Fatalf("Expected assignment for %s", subject)
		}
		byVariant[a.Variant] = append(byVariant[a.Variant], subject)
	}

	// The 60/40 split holds within ±3%.
	if n := len(byVariant["control"]); n < 570 || n > 630 {
		t.Errorf("control got %d subjects, expected 600 +/- 30", n)
	}
	if n := len(byVariant["variant_a"]); n < 370 || n > 430 {
		t.Errorf("variant_a got %d subjects, expected 400 +/- 30", n)
	}

	// 80 control conversions and 60 variant conversions.
	for _, subject := range byVariant["control"][:80] {
		if ev := e.TrackEvent(ctx, exp.ID, subject, "conversion", nil, ""); ev == nil {
			t.Fatalf("TrackEvent dropped for %s", subject)
		}
	}
	for _, subject := range byVariant["variant_a"][:60] {
		if ev := e.TrackEvent(ctx, exp.ID, subject, "conversion", nil, ""); ev == nil {
			t.Fatalf("TrackEvent dropped for %s", subject)
		}
	}

	results, err := e.GetExperimentResults(ctx, exp.ID)
	if err != nil {
		t.Fatalf("GetExperimentResults failed: %v", err)
	}
	if results.Metrics.TotalUsers != 1000 {
		t.Errorf("Expected 1000 total users, got %d", results.Metrics.TotalUsers)
	}

	control := results.Metrics.Variants["control"]
	variant := results.Metrics.Variants["variant_a"]
	if control.Conversions != 80 {
		t.Errorf("Expected 80 control conversions, got %d", control.Conversions)
	}
	if variant.Conversions != 60 {
		t.Errorf("Expected 60 variant_a conversions, got %d", variant.Conversions)
	}

	wantControlRate := 80.0 / float64(control.TotalUsers)
	if control.ConversionRate != wantControlRate {
		t.Errorf("control rate %v, want %v", control.ConversionRate, wantControlRate)
	}
	// Around 13.3% and 15.0% for an on-target split.
	if control.ConversionRate < 0.12 || control.ConversionRate > 0.15 {
		t.Errorf("control rate out of expected band: %v", control.ConversionRate)
	}
	if variant.ConversionRate < 0.13 || variant.ConversionRate > 0.17 {
		t.Errorf("variant_a rate out of expected band: %v", variant.ConversionRate)
	}

	if results.Analysis == nil || results.Recommendation == nil {
		t.Fatal("Expected analysis and recommendation in results")
	}

	// Stop and verify the frozen results survive further traffic.
	if _, err := e.StopExperiment(ctx, exp.ID, "test complete"); err != nil {
		t.Fatalf("StopExperiment failed: %v", err)
	}
	e.TrackEvent(ctx, exp.ID, "subject_0", "conversion", nil, "")

	frozen, err := e.GetExperimentResults(ctx, exp.ID)
	if err != nil {
		t.Fatalf("GetExperimentResults after stop failed: %v", err)
	}
	if frozen.Metrics.Variants["control"].Conversions != 80 {
		t.Errorf("Frozen results changed after stop: %d conversions", frozen.Metrics.Variants["control"].Conversions)
	}
	if frozen.Experiment.Status != models.StatusCompleted {
		t.Errorf("Expected completed status, got %s", frozen.Experiment.Status)
	}
}

func TestListExperiments(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cfg := titleConfig()
		cfg.Name = fmt.Sprintf("experiment %d", i)
		if _, err := e.CreateExperiment(ctx, cfg); err != nil {
			t.Fatalf("CreateExperiment failed: %v", err)
		}
	}

	experiments, err := e.ListExperiments(ctx)
	if err != nil {
		t.Fatalf("ListExperiments failed: %v", err)
	}
	if len(experiments) != 3 {
		t.Errorf("Expected 3 experiments, got %d", len(experiments))
	}
}
