// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

// Package metrics provides Prometheus instrumentation for the
// experimentation engine: assignment throughput, event tracking,
// config-store latency, circuit breaker state, and API metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Assignment Metrics
	AssignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "experimentus_assignments_total",
			Help: "Total number of variant assignments computed",
		},
		[]string{"experiment", "variant"},
	)

	AssignmentsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "experimentus_assignments_skipped_total",
			Help: "Assignments that resolved to no variant",
		},
		[]string{"reason"}, // "not_running", "targeting_excluded", "fail_open"
	)

	// Event Tracking Metrics
	EventsTrackedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "experimentus_events_tracked_total",
			Help: "Total number of events recorded against a variant",
		},
		[]string{"experiment", "event_type"},
	)

	EventsDeduplicatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "experimentus_events_deduplicated_total",
			Help: "Events dropped because their idempotency key was already seen",
		},
	)

	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "experimentus_events_dropped_total",
			Help: "Events ignored without metric updates",
		},
		[]string{"reason"}, // "no_assignment", "fail_open"
	)

	AuditPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "experimentus_audit_publish_failures_total",
			Help: "Best-effort audit sink publishes that failed (non-fatal)",
		},
	)

	AuditEventsAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "experimentus_audit_events_appended_total",
			Help: "Events durably appended to the audit sink",
		},
	)

	// Config Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "experimentus_store_operation_duration_seconds",
			Help:    "Duration of config store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "experimentus_config_breaker_open",
			Help: "1 when the config-store circuit breaker is open, 0 otherwise",
		},
	)

	// Experiment Lifecycle Metrics
	ExperimentsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "experimentus_experiments_started_total",
			Help: "Experiments transitioned to running",
		},
	)

	ExperimentsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "experimentus_experiments_completed_total",
			Help: "Experiments transitioned to completed",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "experimentus_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "experimentus_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "experimentus_api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)

// RecordAssignment records a computed assignment.
func RecordAssignment(experimentID, variant string) {
	AssignmentsTotal.WithLabelValues(experimentID, variant).Inc()
}

// RecordAssignmentSkipped records an assignment that resolved to nothing.
func RecordAssignmentSkipped(reason string) {
	AssignmentsSkipped.WithLabelValues(reason).Inc()
}

// RecordEventTracked records a tracked event.
func RecordEventTracked(experimentID, eventType string) {
	EventsTrackedTotal.WithLabelValues(experimentID, eventType).Inc()
}

// RecordEventDropped records an event ignored without metric updates.
func RecordEventDropped(reason string) {
	EventsDroppedTotal.WithLabelValues(reason).Inc()
}

// ObserveStoreOperation records the duration of a config store operation.
func ObserveStoreOperation(operation string, d time.Duration) {
	StoreOperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// SetBreakerOpen records the config-store breaker state.
func SetBreakerOpen(open bool) {
	if open {
		BreakerState.Set(1)
	} else {
		BreakerState.Set(0)
	}
}

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// TrackActiveRequest adjusts the active request gauge.
func TrackActiveRequest(active bool) {
	if active {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
