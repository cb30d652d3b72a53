// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/experimentus/internal/audit"
	"github.com/tomtom215/experimentus/internal/engine"
	"github.com/tomtom215/experimentus/internal/logging"
	"github.com/tomtom215/experimentus/internal/models"
	"github.com/tomtom215/experimentus/internal/registry"
	"github.com/tomtom215/experimentus/internal/validation"
)

// Handlers holds the HTTP handlers for the experimentation API.
type Handlers struct {
	engine    *engine.Engine
	audit     *audit.Log
	startedAt time.Time
}

// NewHandlers creates the handler set. The audit log may be nil, which
// disables the recent-events endpoint.
func NewHandlers(eng *engine.Engine, auditLog *audit.Log) *Handlers {
	return &Handlers{
		engine:    eng,
		audit:     auditLog,
		startedAt: time.Now().UTC(),
	}
}

// CreateExperiment handles POST /api/v1/experiments.
func (h *Handlers) CreateExperiment(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var cfg registry.Config
	if err := decodeJSON(r, &cfg); err != nil {
		rw.BadRequest(err.Error())
		return
	}

	exp, err := h.engine.CreateExperiment(r.Context(), cfg)
	if err != nil {
		h.writeError(rw, err)
		return
	}
	rw.Created(exp)
}

// ListExperiments handles GET /api/v1/experiments.
func (h *Handlers) ListExperiments(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	experiments, err := h.engine.ListExperiments(r.Context())
	if err != nil {
		h.writeError(rw, err)
		return
	}
	rw.Success(map[string]interface{}{
		"experiments": experiments,
		"count":       len(experiments),
	})
}

// GetExperiment handles GET /api/v1/experiments/{id}.
func (h *Handlers) GetExperiment(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	exp, err := h.engine.GetExperiment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(rw, err)
		return
	}
	rw.Success(exp)
}

// StartExperiment handles POST /api/v1/experiments/{id}/start.
func (h *Handlers) StartExperiment(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	exp, err := h.engine.StartExperiment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(rw, err)
		return
	}
	rw.Success(exp)
}

// StopExperiment handles POST /api/v1/experiments/{id}/stop.
func (h *Handlers) StopExperiment(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req StopExperimentRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if req.Reason == "" {
		req.Reason = "manual"
	}

	exp, err := h.engine.StopExperiment(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.writeError(rw, err)
		return
	}
	rw.Success(exp)
}

// GetAssignment handles GET /api/v1/experiments/{id}/assignment.
// A null assignment is a successful response; callers render default
// content when no variant applies.
func (h *Handlers) GetAssignment(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	subjectID := r.URL.Query().Get("subject_id")
	if subjectID == "" {
		rw.BadRequest("subject_id query parameter is required")
		return
	}

	a := h.engine.GetUserAssignment(r.Context(), chi.URLParam(r, "id"), subjectID)
	rw.Success(map[string]interface{}{"assignment": a})
}

// TrackEvent handles POST /api/v1/experiments/{id}/events. Always
// accepts well-formed requests; whether the event counted is reported
// in the response, never as an error.
func (h *Handlers) TrackEvent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req TrackEventRequest
	if err := decodeAndValidate(r, &req); err != nil {
		var verr *validation.RequestValidationError
		if errors.As(err, &verr) {
			fields := verr.Errors()
			details := make([]string, len(fields))
			for i := range fields {
				details[i] = fields[i].Error()
			}
			rw.ValidationError("event request failed validation", details)
			return
		}
		rw.BadRequest(err.Error())
		return
	}

	event := h.engine.TrackEvent(r.Context(), chi.URLParam(r, "id"), req.SubjectID, req.EventType, req.EventData, req.IdempotencyKey)
	rw.Accepted(map[string]interface{}{
		"accepted": event != nil,
		"event":    event,
	})
}

// RecentEvents handles GET /api/v1/experiments/{id}/events.
func (h *Handlers) RecentEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.audit == nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "event audit log is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			rw.BadRequest("limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	events, err := h.audit.Recent(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		rw.StorageError(err)
		return
	}
	rw.Success(map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// GetResults handles GET /api/v1/experiments/{id}/results.
func (h *Handlers) GetResults(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	results, err := h.engine.GetExperimentResults(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(rw, err)
		return
	}
	rw.Success(results)
}

// Health handles GET /api/v1/health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// HealthLive handles GET /api/v1/health/live.
func (h *Handlers) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady handles GET /api/v1/health/ready. Readiness probes the
// config store through a list call.
func (h *Handlers) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if _, err := h.engine.ListExperiments(r.Context()); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Readiness check failed")
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "config store unavailable")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}

// writeError maps domain errors onto HTTP responses.
func (h *Handlers) writeError(rw *ResponseWriter, err error) {
	if errors.Is(err, models.ErrExperimentNotFound) {
		rw.NotFound("experiment not found")
		return
	}

	var verr *models.ValidationError
	if errors.As(err, &verr) {
		rw.ValidationError(verr.Message, map[string]string{"rule": verr.Rule})
		return
	}

	var serr *models.StateError
	if errors.As(err, &serr) {
		rw.Conflict(serr.Error())
		return
	}

	rw.StorageError(err)
}
