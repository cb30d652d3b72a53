// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package models

import (
	"testing"
	"time"
)

func testExperiment() *Experiment {
	return &Experiment{
		ID:           "exp_test",
		Name:         "title test",
		TemplateType: "video_title",
		Topic:        TopicAll,
		Variants: []Variant{
			{Name: "control", Weight: 50},
			{Name: "variant_a", Weight: 50},
		},
		Status:            StatusDraft,
		PrimaryMetric:     "conversion",
		SignificanceLevel: 0.05,
		MinimumSampleSize: 100,
		CreatedAt:         time.Now().UTC(),
	}
}

func TestExperiment_Start(t *testing.T) {
	exp := testExperiment()
	now := time.Now().UTC()

	if err := exp.Start(now); err != nil {
		t.Fatalf("Start on draft experiment failed: %v", err)
	}
	if exp.Status != StatusRunning {
		t.Errorf("Expected status running, got %s", exp.Status)
	}
	if exp.ActualStartDate == nil || !exp.ActualStartDate.Equal(now) {
		t.Errorf("Expected actual start date %v, got %v", now, exp.ActualStartDate)
	}

	// Starting again must fail and leave state untouched.
	if err := exp.Start(now); err == nil {
		t.Error("Expected StateError starting a running experiment")
	}
	if _, ok := AsStateError(exp.Start(now)); !ok {
		t.Error("Expected a *StateError")
	}
	if exp.Status != StatusRunning {
		t.Errorf("Status changed on failed transition: %s", exp.Status)
	}
}

func TestExperiment_Complete(t *testing.T) {
	exp := testExperiment()
	now := time.Now().UTC()

	// Completing a draft experiment must fail.
	if err := exp.Complete(now, nil); err == nil {
		t.Error("Expected StateError completing a draft experiment")
	}

	if err := exp.Start(now); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	results := &FinalResults{ComputedAt: now}
	if err := exp.Complete(now, results); err != nil {
		t.Fatalf("Complete on running experiment failed: %v", err)
	}
	if exp.Status != StatusCompleted {
		t.Errorf("Expected status completed, got %s", exp.Status)
	}
	if exp.FinalResults != results {
		t.Error("FinalResults not attached")
	}

	// Completed experiments cannot be reopened or re-completed.
	if err := exp.Start(now); err == nil {
		t.Error("Expected StateError restarting a completed experiment")
	}
	if err := exp.Complete(now, nil); err == nil {
		t.Error("Expected StateError re-completing a completed experiment")
	}
}

func TestExperiment_TotalWeight(t *testing.T) {
	exp := testExperiment()
	if got := exp.TotalWeight(); got != 100 {
		t.Errorf("Expected total weight 100, got %d", got)
	}

	exp.Variants = []Variant{{Name: "a", Weight: 60}, {Name: "b", Weight: 30}}
	if got := exp.TotalWeight(); got != 90 {
		t.Errorf("Expected total weight 90, got %d", got)
	}
}

func TestExperiment_HasVariant(t *testing.T) {
	exp := testExperiment()
	if !exp.HasVariant("control") {
		t.Error("Expected control variant to exist")
	}
	if exp.HasVariant("nonexistent") {
		t.Error("Did not expect nonexistent variant")
	}
}

func TestPairKey(t *testing.T) {
	if got := PairKey("control", "variant_a"); got != "control_vs_variant_a" {
		t.Errorf("Unexpected pair key: %s", got)
	}
}

func TestMetricsSnapshot_VariantFor(t *testing.T) {
	snap := &MetricsSnapshot{
		ExperimentID: "exp_test",
		Variants: map[string]VariantMetrics{
			"control": {Variant: "control", TotalUsers: 10, Conversions: 2, ConversionRate: 0.2},
		},
	}

	vm := snap.VariantFor("control")
	if vm.TotalUsers != 10 {
		t.Errorf("Expected 10 users, got %d", vm.TotalUsers)
	}

	// Unknown variants return a zero-valued entry, not a panic.
	vm = snap.VariantFor("unknown")
	if vm.TotalUsers != 0 || vm.Variant != "unknown" {
		t.Errorf("Unexpected zero-value metrics: %+v", vm)
	}
}
