// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package models

// Reasons a pairwise test was not significant without the z-test being run.
// These are normal outcomes, not errors.
const (
	// ReasonInsufficientSampleSize means a variant is below the
	// experiment's minimum sample size.
	ReasonInsufficientSampleSize = "insufficient_sample_size"

	// ReasonZeroVariance means the pooled standard error is zero
	// (e.g. both variants converted identically at 0% or 100%).
	ReasonZeroVariance = "zero_variance"
)

// PairResult is the outcome of a two-proportion z-test between two
// variants. When Reason is non-empty the test was not attempted and the
// numeric fields other than rates are zero.
type PairResult struct {
	VariantA string `json:"variant_a"`
	VariantB string `json:"variant_b"`

	Significant bool   `json:"significant"`
	Reason      string `json:"reason,omitempty"`

	ZScore float64 `json:"z_score,omitempty"`
	PValue float64 `json:"p_value,omitempty"`

	RateA float64 `json:"rate_a"`
	RateB float64 `json:"rate_b"`

	// Difference is RateB - RateA.
	Difference float64 `json:"difference"`

	// ConfidenceInterval bounds the rate difference at the 95% level.
	ConfidenceInterval [2]float64 `json:"confidence_interval"`
}

// VariantInterval is a Wilson score confidence interval for a single
// variant's conversion rate.
type VariantInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Analysis aggregates pairwise significance results for an experiment.
type Analysis struct {
	ExperimentID string `json:"experiment_id"`

	// Pairwise maps "variantA_vs_variantB" to the test outcome for
	// every unordered variant pair, in configured variant order.
	Pairwise map[string]PairResult `json:"pairwise"`

	// AnySignificant reports whether any pair reached significance.
	AnySignificant bool `json:"any_significant"`

	// VariantIntervals holds per-variant Wilson score intervals for the
	// primary metric rate.
	VariantIntervals map[string]VariantInterval `json:"variant_intervals,omitempty"`
}

// PairKey builds the canonical pairwise map key.
func PairKey(variantA, variantB string) string {
	return variantA + "_vs_" + variantB
}

// ResultsInvolving returns pairwise results where the named variant is
// one side of the comparison.
func (a *Analysis) ResultsInvolving(variant string) []PairResult {
	var results []PairResult
	for _, pr := range a.Pairwise {
		if pr.VariantA == variant || pr.VariantB == variant {
			results = append(results, pr)
		}
	}
	return results
}
