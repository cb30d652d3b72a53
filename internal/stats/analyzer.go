// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

// Package stats computes pairwise two-proportion significance tests and
// confidence intervals from aggregated experiment metrics. All
// computation is pure and in-memory.
//
// Note: the engine runs a single uncorrected check whenever results are
// requested. Repeated peeking at a running experiment inflates the
// false-positive rate; callers who need sequential-testing guarantees
// must gate how often they look.
package stats

import (
	"math"

	"github.com/tomtom215/experimentus/internal/models"
)

// Analyzer computes significance analyses. Stateless; a single instance
// is safe for concurrent use.
type Analyzer struct{}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze runs a two-proportion z-test for every unordered pair of the
// experiment's variants against the snapshot, plus a Wilson interval
// per variant. Insufficient sample size and zero variance are normal
// outcomes recorded on the pair result, never errors.
func (a *Analyzer) Analyze(exp *models.Experiment, snap *models.MetricsSnapshot) *models.Analysis {
	analysis := &models.Analysis{
		ExperimentID:     exp.ID,
		Pairwise:         make(map[string]models.PairResult),
		VariantIntervals: make(map[string]models.VariantInterval),
	}

	names := exp.VariantNames()
	for _, name := range names {
		vm := snap.VariantFor(name)
		lower, upper := WilsonInterval(vm.Conversions, vm.TotalUsers)
		analysis.VariantIntervals[name] = models.VariantInterval{Lower: lower, Upper: upper}
	}

	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			pr := testPair(
				snap.VariantFor(names[i]),
				snap.VariantFor(names[j]),
				exp.MinimumSampleSize,
				exp.SignificanceLevel,
			)
			analysis.Pairwise[models.PairKey(names[i], names[j])] = pr
			if pr.Significant {
				analysis.AnySignificant = true
			}
		}
	}

	return analysis
}

// testPair runs the two-proportion z-test between variants A and B.
func testPair(a, b models.VariantMetrics, minimumSampleSize int, significanceLevel float64) models.PairResult {
	result := models.PairResult{
		VariantA: a.Variant,
		VariantB: b.Variant,
		RateA:    rate(a),
		RateB:    rate(b),
	}
	result.Difference = result.RateB - result.RateA

	if a.TotalUsers < int64(minimumSampleSize) || b.TotalUsers < int64(minimumSampleSize) {
		result.Reason = models.ReasonInsufficientSampleSize
		return result
	}

	nA := float64(a.TotalUsers)
	nB := float64(b.TotalUsers)

	pooled := float64(a.Conversions+b.Conversions) / (nA + nB)
	se := math.Sqrt(pooled * (1 - pooled) * (1/nA + 1/nB))
	if se == 0 {
		result.Reason = models.ReasonZeroVariance
		return result
	}

	z := (result.RateB - result.RateA) / se
	pValue := 2 * (1 - NormalCDF(math.Abs(z)))

	// Unpooled standard error for the difference interval.
	seDiff := math.Sqrt(result.RateA*(1-result.RateA)/nA + result.RateB*(1-result.RateB)/nB)
	margin := zCritical95 * seDiff

	result.ZScore = z
	result.PValue = pValue
	result.ConfidenceInterval = [2]float64{result.Difference - margin, result.Difference + margin}
	result.Significant = pValue < significanceLevel
	return result
}

// rate returns conversions per user, 0 for empty variants.
func rate(vm models.VariantMetrics) float64 {
	if vm.TotalUsers == 0 {
		return 0
	}
	return float64(vm.Conversions) / float64(vm.TotalUsers)
}
