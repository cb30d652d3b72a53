// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package models

import "time"

// Recommendation actions.
const (
	// ActionContinue means keep the experiment running.
	ActionContinue = "continue"

	// ActionImplement means adopt the winning variant.
	ActionImplement = "implement"

	// ActionStop means end the experiment with no winner.
	ActionStop = "stop"
)

// Recommendation confidence levels.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// Recommendation is the actionable conclusion composed from experiment
// state, metrics, and significance results.
type Recommendation struct {
	Action     string   `json:"action"`
	Confidence string   `json:"confidence"`
	Winner     string   `json:"winner,omitempty"`
	Reasons    []string `json:"reasons"`
}

// FinalResults is the immutable snapshot frozen into an experiment when
// it completes. It deliberately contains no reference back to the live
// Experiment to keep serialization acyclic.
type FinalResults struct {
	StopReason     string           `json:"stop_reason,omitempty"`
	Metrics        *MetricsSnapshot `json:"metrics"`
	Analysis       *Analysis        `json:"analysis"`
	Recommendation *Recommendation  `json:"recommendation"`
	ComputedAt     time.Time        `json:"computed_at"`
}

// ExperimentResults is the composite returned by getExperimentResults:
// the experiment plus its current (or frozen) metrics, statistical
// analysis, and recommendation.
type ExperimentResults struct {
	Experiment     *Experiment      `json:"experiment"`
	Metrics        *MetricsSnapshot `json:"metrics"`
	Analysis       *Analysis        `json:"statistical_analysis"`
	Recommendation *Recommendation  `json:"recommendations"`
}
