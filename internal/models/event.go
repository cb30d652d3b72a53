// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package models

import (
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the current tracked-event schema version.
// Increment on breaking changes to TrackedEvent.
const SchemaVersion = 1

// Assignment maps a subject to a variant for a given experiment. It is
// derived, not stored: the same inputs always recompute the same value,
// so any cached copy must agree with a fresh computation.
type Assignment struct {
	ExperimentID string    `json:"experiment_id"`
	SubjectID    string    `json:"subject_id"`
	Variant      string    `json:"variant"`
	Bucket       int       `json:"bucket"`
	AssignedAt   time.Time `json:"assigned_at"`
}

// TrackedEvent is an exposure or outcome event attributed to the
// subject's variant. Events are immutable once created.
type TrackedEvent struct {
	SchemaVersion int `json:"schema_version,omitempty"`

	EventID      string `json:"event_id"`
	ExperimentID string `json:"experiment_id"`
	SubjectID    string `json:"subject_id"`

	// EventType names the metric this event feeds (e.g. "conversion").
	EventType string `json:"event_type"`

	// EventData carries arbitrary caller-supplied context.
	EventData map[string]interface{} `json:"event_data,omitempty"`

	// Variant is the resolved assignment at tracking time.
	Variant string `json:"variant"`

	// IdempotencyKey deduplicates redelivered events. Optional.
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// NewTrackedEvent creates an event with a unique ID, UTC timestamp, and
// current schema version.
func NewTrackedEvent(experimentID, subjectID, eventType string) *TrackedEvent {
	return &TrackedEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		ExperimentID:  experimentID,
		SubjectID:     subjectID,
		EventType:     eventType,
		Timestamp:     time.Now().UTC(),
	}
}
