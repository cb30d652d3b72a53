// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/experimentus/internal/validation"
)

// maxRequestBody caps request bodies at 1 MiB. Experiment definitions
// and tracked events are small; anything bigger is malformed or abuse.
const maxRequestBody = 1 << 20

// StopExperimentRequest is the optional body of the stop endpoint.
type StopExperimentRequest struct {
	Reason string `json:"reason,omitempty"`
}

// TrackEventRequest is the body of the event tracking endpoint.
type TrackEventRequest struct {
	SubjectID      string                 `json:"subject_id" validate:"required"`
	EventType      string                 `json:"event_type" validate:"required"`
	EventData      map[string]interface{} `json:"event_data,omitempty"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty"`
}

// decodeJSON reads and unmarshals a request body into dst, enforcing
// the body size limit and rejecting trailing garbage.
func decodeJSON(r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxRequestBody)
	defer body.Close()

	decoder := json.NewDecoder(body)
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if decoder.More() {
		return fmt.Errorf("unexpected trailing data in request body")
	}
	return nil
}

// decodeAndValidate decodes the body and runs struct validation.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := decodeJSON(r, dst); err != nil {
		return err
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		return verr
	}
	return nil
}

// decodeOptionalJSON decodes the body when one is present; an empty
// body leaves dst untouched.
func decodeOptionalJSON(r *http.Request, dst interface{}) error {
	err := decodeJSON(r, dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
