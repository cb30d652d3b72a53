// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

// Package models defines the core domain types shared across the
// experimentation engine: experiments, variants, assignments, tracked
// events, metric snapshots, and result structures.
package models

import (
	"fmt"
	"time"
)

// Status represents the lifecycle state of an experiment.
// Transitions are monotonic: draft -> running -> completed.
type Status string

const (
	// StatusDraft is the initial state after creation. Draft
	// experiments accept no traffic.
	StatusDraft Status = "draft"

	// StatusRunning means the experiment is live and assigning subjects.
	StatusRunning Status = "running"

	// StatusCompleted means the experiment has been stopped and its
	// final results frozen. Completed experiments cannot be reopened.
	StatusCompleted Status = "completed"
)

// TopicAll is the topic scope matching all content topics.
const TopicAll = "all"

// Variant is one arm of an experiment. Variants form an ordered list;
// the order is significant because deterministic assignment walks the
// list accumulating weight boundaries.
type Variant struct {
	Name   string `json:"name" validate:"required"`
	Weight int    `json:"weight" validate:"min=0,max=100"`
}

// Targeting rule types.
const (
	// TargetingAll matches every subject (the default).
	TargetingAll = "all"

	// TargetingAllowlist matches only the listed subject IDs.
	TargetingAllowlist = "allowlist"

	// TargetingPrefix matches subjects whose ID starts with any of the
	// listed prefixes.
	TargetingPrefix = "prefix"

	// TargetingPercentage matches a deterministic percentage of
	// subjects, independent of variant assignment.
	TargetingPercentage = "percentage"
)

// TargetingRule restricts which subjects participate in an experiment.
// A nil rule matches all subjects. Evaluation lives in the assignment
// package; this struct is pure data.
type TargetingRule struct {
	Type       string   `json:"type" validate:"omitempty,oneof=all allowlist prefix percentage"`
	Values     []string `json:"values,omitempty"`
	Percentage int      `json:"percentage,omitempty" validate:"min=0,max=100"`
}

// Experiment is a configured comparison between two or more content
// generation variants.
type Experiment struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	TemplateType string `json:"template_type"`

	// Topic scopes the experiment to a content topic, or "all".
	Topic string `json:"topic"`

	// Variants is the ordered list of arms. Weights sum to exactly 100.
	Variants []Variant `json:"variants"`

	Status Status `json:"status"`

	// Scheduled window (informational; transitions are explicit).
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	// Actual transition timestamps, set by Start and Complete.
	ActualStartDate *time.Time `json:"actual_start_date,omitempty"`
	ActualEndDate   *time.Time `json:"actual_end_date,omitempty"`

	// PrimaryMetric is the event type counted as a conversion.
	PrimaryMetric string `json:"primary_metric"`

	// SecondaryMetrics are additional event types tracked per variant.
	SecondaryMetrics []string `json:"secondary_metrics,omitempty"`

	// SignificanceLevel is the alpha for the two-proportion test.
	// Default 0.05.
	SignificanceLevel float64 `json:"significance_level"`

	// MinimumSampleSize is the per-variant sample floor below which no
	// significance test is attempted. Default 100.
	MinimumSampleSize int `json:"minimum_sample_size"`

	Targeting *TargetingRule `json:"targeting,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by,omitempty"`

	// FinalResults is populated exactly once, when the experiment
	// completes. It is a value snapshot with no reference back to this
	// struct.
	FinalResults *FinalResults `json:"final_results,omitempty"`
}

// IsRunning reports whether the experiment currently accepts traffic.
func (e *Experiment) IsRunning() bool {
	return e.Status == StatusRunning
}

// TotalWeight returns the sum of all variant weights.
func (e *Experiment) TotalWeight() int {
	total := 0
	for _, v := range e.Variants {
		total += v.Weight
	}
	return total
}

// HasVariant reports whether the named variant exists.
func (e *Experiment) HasVariant(name string) bool {
	for _, v := range e.Variants {
		if v.Name == name {
			return true
		}
	}
	return false
}

// VariantNames returns variant names in configured order.
func (e *Experiment) VariantNames() []string {
	names := make([]string, len(e.Variants))
	for i, v := range e.Variants {
		names[i] = v.Name
	}
	return names
}

// Start transitions the experiment from draft to running. Returns a
// StateError for any other current status; no state changes on error.
func (e *Experiment) Start(now time.Time) error {
	if e.Status != StatusDraft {
		return &StateError{ExperimentID: e.ID, Current: e.Status, Action: "start"}
	}
	e.Status = StatusRunning
	e.ActualStartDate = &now
	return nil
}

// Complete transitions the experiment from running to completed and
// attaches the frozen results. Returns a StateError for any other
// current status; no state changes on error.
func (e *Experiment) Complete(now time.Time, results *FinalResults) error {
	if e.Status != StatusRunning {
		return &StateError{ExperimentID: e.ID, Current: e.Status, Action: "stop"}
	}
	e.Status = StatusCompleted
	e.ActualEndDate = &now
	e.FinalResults = results
	return nil
}

// IsSecondaryMetric reports whether the event type is one of the
// experiment's secondary metrics.
func (e *Experiment) IsSecondaryMetric(eventType string) bool {
	for _, m := range e.SecondaryMetrics {
		if m == eventType {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer for log readability.
func (e *Experiment) String() string {
	return fmt.Sprintf("%s (%s, %d variants, %s)", e.ID, e.Name, len(e.Variants), e.Status)
}
