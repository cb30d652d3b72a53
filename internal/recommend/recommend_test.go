// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package recommend

import (
	"testing"

	"github.com/tomtom215/experimentus/internal/models"
	"github.com/tomtom215/experimentus/internal/stats"
)

func testExperiment() *models.Experiment {
	return &models.Experiment{
		ID:           "exp_rec",
		Name:         "recommendation test",
		TemplateType: "video_title",
		Variants: []models.Variant{
			{Name: "control", Weight: 50},
			{Name: "variant_a", Weight: 50},
		},
		Status:            models.StatusRunning,
		PrimaryMetric:     "conversion",
		SignificanceLevel: 0.05,
		MinimumSampleSize: 100,
	}
}

func buildSnapshot(exp *models.Experiment, users, conversions map[string]int64) *models.MetricsSnapshot {
	snap := &models.MetricsSnapshot{
		ExperimentID: exp.ID,
		Variants:     make(map[string]models.VariantMetrics),
	}
	for _, v := range exp.Variants {
		vm := models.VariantMetrics{
			Variant:     v.Name,
			TotalUsers:  users[v.Name],
			Conversions: conversions[v.Name],
		}
		if vm.TotalUsers > 0 {
			vm.ConversionRate = float64(vm.Conversions) / float64(vm.TotalUsers)
		}
		snap.Variants[v.Name] = vm
		snap.TotalUsers += vm.TotalUsers
	}
	return snap
}

func TestRecommend_InsufficientData(t *testing.T) {
	exp := testExperiment()
	// 150 users total, below the 200 threshold, despite an extreme split.
	snap := buildSnapshot(exp,
		map[string]int64{"control": 75, "variant_a": 75},
		map[string]int64{"control": 1, "variant_a": 60},
	)
	analysis := stats.NewAnalyzer().Analyze(exp, snap)

	rec := Recommend(exp, snap, analysis)
	if rec.Action != models.ActionContinue {
		t.Errorf("Expected continue, got %s", rec.Action)
	}
	if rec.Confidence != models.ConfidenceLow {
		t.Errorf("Expected low confidence, got %s", rec.Confidence)
	}
	if rec.Winner != "" {
		t.Errorf("Expected no winner, got %q", rec.Winner)
	}
	if len(rec.Reasons) == 0 {
		t.Error("Expected a reason")
	}
}

func TestRecommend_ImplementWinner(t *testing.T) {
	exp := testExperiment()
	snap := buildSnapshot(exp,
		map[string]int64{"control": 1000, "variant_a": 1000},
		map[string]int64{"control": 100, "variant_a": 150},
	)
	analysis := stats.NewAnalyzer().Analyze(exp, snap)
	if !analysis.AnySignificant {
		t.Fatal("Fixture should be significant")
	}

	rec := Recommend(exp, snap, analysis)
	if rec.Action != models.ActionImplement {
		t.Errorf("Expected implement, got %s", rec.Action)
	}
	if rec.Confidence != models.ConfidenceHigh {
		t.Errorf("Expected high confidence, got %s", rec.Confidence)
	}
	if rec.Winner != "variant_a" {
		t.Errorf("Expected variant_a as winner, got %q", rec.Winner)
	}
}

func TestRecommend_ContinueTrendingAhead(t *testing.T) {
	exp := testExperiment()
	// Slightly ahead but not significant at these counts.
	snap := buildSnapshot(exp,
		map[string]int64{"control": 500, "variant_a": 500},
		map[string]int64{"control": 50, "variant_a": 56},
	)
	analysis := stats.NewAnalyzer().Analyze(exp, snap)
	if analysis.AnySignificant {
		t.Fatal("Fixture should not be significant")
	}

	rec := Recommend(exp, snap, analysis)
	if rec.Action != models.ActionContinue {
		t.Errorf("Expected continue, got %s", rec.Action)
	}
	if rec.Confidence != models.ConfidenceMedium {
		t.Errorf("Expected medium confidence, got %s", rec.Confidence)
	}
	if rec.Winner != "" {
		t.Errorf("Expected no winner yet, got %q", rec.Winner)
	}
}

func TestRecommend_StopNoImprovement(t *testing.T) {
	exp := testExperiment()
	snap := buildSnapshot(exp,
		map[string]int64{"control": 500, "variant_a": 500},
		map[string]int64{"control": 60, "variant_a": 55},
	)
	analysis := stats.NewAnalyzer().Analyze(exp, snap)

	rec := Recommend(exp, snap, analysis)
	if rec.Action != models.ActionStop {
		t.Errorf("Expected stop when baseline leads, got %s", rec.Action)
	}
	if rec.Confidence != models.ConfidenceMedium {
		t.Errorf("Expected medium confidence, got %s", rec.Confidence)
	}
}

func TestRecommend_StopZeroConversions(t *testing.T) {
	exp := testExperiment()
	snap := buildSnapshot(exp,
		map[string]int64{"control": 300, "variant_a": 300},
		map[string]int64{"control": 0, "variant_a": 0},
	)
	analysis := stats.NewAnalyzer().Analyze(exp, snap)

	rec := Recommend(exp, snap, analysis)
	if rec.Action != models.ActionStop {
		t.Errorf("Expected stop with zero conversions everywhere, got %s", rec.Action)
	}
}
