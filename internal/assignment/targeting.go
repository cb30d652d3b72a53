// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package assignment

import (
	"strings"

	"github.com/tomtom215/experimentus/internal/models"
)

// rolloutSalt separates the percentage-rollout bucket space from the
// variant-assignment bucket space, so gating a subject in or out of an
// experiment does not correlate with which variant they would get.
const rolloutSalt = ":rollout"

// Targeted evaluates the experiment's targeting rule against a subject
// ID. A nil rule matches everyone.
func Targeted(rule *models.TargetingRule, experimentID, subjectID string) bool {
	if rule == nil {
		return true
	}

	switch rule.Type {
	case "", models.TargetingAll:
		return true

	case models.TargetingAllowlist:
		for _, v := range rule.Values {
			if v == subjectID {
				return true
			}
		}
		return false

	case models.TargetingPrefix:
		for _, prefix := range rule.Values {
			if strings.HasPrefix(subjectID, prefix) {
				return true
			}
		}
		return false

	case models.TargetingPercentage:
		return Bucket(experimentID+rolloutSalt, subjectID) < rule.Percentage

	default:
		// Unknown rule types exclude rather than silently include.
		return false
	}
}
