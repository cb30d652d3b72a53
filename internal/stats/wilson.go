// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package stats

import "math"

// zCritical95 is the two-tailed critical value at the 95% level.
const zCritical95 = 1.96

// WilsonInterval calculates the Wilson score confidence interval for a
// binomial proportion at the 95% level. More accurate for small
// samples than the normal approximation, which is why it backs the
// per-variant intervals in analysis output.
func WilsonInterval(successes, trials int64) (lower, upper float64) {
	if trials == 0 {
		return 0, 0
	}

	z := zCritical95
	p := float64(successes) / float64(trials)
	n := float64(trials)

	denominator := 1 + z*z/n
	center := (p + z*z/(2*n)) / denominator
	spread := (z / denominator) * math.Sqrt(p*(1-p)/n+z*z/(4*n*n))

	lower = center - spread
	upper = center + spread

	if lower < 0 {
		lower = 0
	}
	if upper > 1 {
		upper = 1
	}
	return lower, upper
}
