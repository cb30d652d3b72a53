// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package models

import (
	"errors"
	"fmt"
)

// ErrExperimentNotFound is returned when no experiment exists for an ID.
var ErrExperimentNotFound = errors.New("experiment not found")

// StateError reports an illegal lifecycle transition, such as starting
// a non-draft experiment or stopping a non-running one. The experiment
// is left unchanged when a StateError is returned.
type StateError struct {
	ExperimentID string
	Current      Status
	Action       string
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s experiment %s in status %q", e.Action, e.ExperimentID, e.Current)
}

// ValidationError reports a malformed experiment configuration. Rule
// identifies the violated constraint in machine-readable form.
type ValidationError struct {
	Rule    string
	Message string
}

// Validation rule identifiers.
const (
	RuleNameRequired         = "name_required"
	RuleTemplateTypeRequired = "template_type_required"
	RuleMinimumVariants      = "minimum_variants"
	RuleWeightSum            = "weight_sum"
	RuleFieldConstraint      = "field_constraint"
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid experiment config (%s): %s", e.Rule, e.Message)
}

// AsStateError unwraps err as a *StateError if possible.
func AsStateError(err error) (*StateError, bool) {
	var se *StateError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// AsValidationError unwraps err as a *ValidationError if possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
