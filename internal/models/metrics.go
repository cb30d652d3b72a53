// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package models

import "time"

// VariantMetrics holds aggregated counters for a single variant.
type VariantMetrics struct {
	Variant string `json:"variant"`

	// TotalUsers counts distinct subjects ever assigned and observed.
	TotalUsers int64 `json:"total_users"`

	// Conversions counts events matching the experiment's primary metric.
	Conversions int64 `json:"conversions"`

	// ConversionRate is Conversions / TotalUsers (0 when no users).
	ConversionRate float64 `json:"conversion_rate"`

	// Secondary holds counters for each secondary metric by name.
	Secondary map[string]int64 `json:"secondary,omitempty"`
}

// MetricsSnapshot is a read-only view of aggregated metrics for one
// experiment, taken at a point in time. Snapshots are consumed by the
// analyzer and recommender; they are never mutated.
type MetricsSnapshot struct {
	ExperimentID string    `json:"experiment_id"`
	TakenAt      time.Time `json:"taken_at"`

	// TotalUsers sums TotalUsers across all variants.
	TotalUsers int64 `json:"total_users"`

	Variants map[string]VariantMetrics `json:"variants"`
}

// VariantFor returns the metrics for the named variant, zero-valued if
// the variant has seen no traffic.
func (s *MetricsSnapshot) VariantFor(name string) VariantMetrics {
	if vm, ok := s.Variants[name]; ok {
		return vm
	}
	return VariantMetrics{Variant: name}
}
