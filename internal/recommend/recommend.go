// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

// Package recommend turns a metrics snapshot and significance analysis
// into an action recommendation. Pure decision logic; no I/O.
package recommend

import (
	"fmt"

	"github.com/tomtom215/experimentus/internal/models"
)

// Recommend derives the suggested action for an experiment. The first
// variant in the experiment's variant list is treated as the baseline.
//
// Decision order:
//  1. Too little data (under twice the minimum sample size across all
//     variants) always yields continue with low confidence.
//  2. The best-performing variant with a significant result against
//     any other variant yields implement with high confidence.
//  3. A best variant beating the baseline without significance yields
//     continue with medium confidence.
//  4. Otherwise stop: the test is unlikely to find a winner.
func Recommend(exp *models.Experiment, snap *models.MetricsSnapshot, analysis *models.Analysis) *models.Recommendation {
	rec := &models.Recommendation{}

	required := int64(exp.MinimumSampleSize) * 2
	if snap.TotalUsers < required {
		rec.Action = models.ActionContinue
		rec.Confidence = models.ConfidenceLow
		rec.Reasons = append(rec.Reasons,
			fmt.Sprintf("insufficient data: %d of %d users needed", snap.TotalUsers, required))
		return rec
	}

	best := bestVariant(exp, snap)
	bestMetrics := snap.VariantFor(best)

	if significantFor(analysis, best) {
		rec.Action = models.ActionImplement
		rec.Confidence = models.ConfidenceHigh
		rec.Winner = best
		rec.Reasons = append(rec.Reasons,
			fmt.Sprintf("%s leads at %.1f%% conversion with a statistically significant difference", best, bestMetrics.ConversionRate*100))
		return rec
	}

	baseline := exp.Variants[0].Name
	baselineMetrics := snap.VariantFor(baseline)
	if best != baseline && bestMetrics.ConversionRate > 0 && bestMetrics.ConversionRate > baselineMetrics.ConversionRate {
		rec.Action = models.ActionContinue
		rec.Confidence = models.ConfidenceMedium
		rec.Reasons = append(rec.Reasons,
			fmt.Sprintf("%s trends ahead of %s (%.1f%% vs %.1f%%) but the difference is not yet significant",
				best, baseline, bestMetrics.ConversionRate*100, baselineMetrics.ConversionRate*100))
		return rec
	}

	rec.Action = models.ActionStop
	rec.Confidence = models.ConfidenceMedium
	rec.Reasons = append(rec.Reasons,
		"no variant is outperforming the baseline; continuing is unlikely to find a winner")
	return rec
}

// bestVariant returns the variant with the highest conversion rate,
// breaking ties in favor of the experiment's variant order.
func bestVariant(exp *models.Experiment, snap *models.MetricsSnapshot) string {
	best := exp.Variants[0].Name
	bestRate := snap.VariantFor(best).ConversionRate
	for _, v := range exp.Variants[1:] {
		if rate := snap.VariantFor(v.Name).ConversionRate; rate > bestRate {
			best = v.Name
			bestRate = rate
		}
	}
	return best
}

// significantFor reports whether any significant pairwise result
// involves the given variant.
func significantFor(analysis *models.Analysis, variant string) bool {
	if analysis == nil {
		return false
	}
	for _, pr := range analysis.ResultsInvolving(variant) {
		if pr.Significant {
			return true
		}
	}
	return false
}
