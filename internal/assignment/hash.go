// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

// Package assignment implements deterministic subject-to-variant
// assignment. Assignment is a pure function of the experiment ID,
// subject ID, and variant weight vector: recomputation always agrees
// with any cached value, across processes and restarts.
package assignment

import "hash/fnv"

// Bucket maps an (experiment, subject) pair to a bucket in [0, 100).
// FNV-1a over "experimentID-subjectID" gives a stable, approximately
// uniform distribution for arbitrary ID strings. Changing this function
// reassigns every subject in every running experiment; treat it as
// frozen.
func Bucket(experimentID, subjectID string) int {
	h := fnv.New32a()
	// fnv.Write never returns an error.
	_, _ = h.Write([]byte(experimentID + "-" + subjectID))
	return int(h.Sum32() % 100)
}
