// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

// Package registry owns experiment definitions: validation on create,
// persistence through the config store, and retrieval. It performs no
// lifecycle orchestration; transitions are driven by the engine.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/experimentus/internal/models"
	"github.com/tomtom215/experimentus/internal/store"
	"github.com/tomtom215/experimentus/internal/validation"
)

// experimentKeyPrefix is the config-store key prefix for experiments.
// One key per experiment; listing is a prefix scan.
const experimentKeyPrefix = "experiment:"

// DefaultSignificanceLevel is applied when a config omits it.
const DefaultSignificanceLevel = 0.05

// DefaultMinimumSampleSize is applied when a config omits it.
const DefaultMinimumSampleSize = 100

// Config is the caller-supplied experiment definition passed to Create.
type Config struct {
	ID                string                `json:"id,omitempty"`
	Name              string                `json:"name" validate:"required"`
	Description       string                `json:"description,omitempty"`
	TemplateType      string                `json:"template_type" validate:"required"`
	Topic             string                `json:"topic,omitempty"`
	Variants          []models.Variant      `json:"variants" validate:"min=2,dive"`
	StartDate         *time.Time            `json:"start_date,omitempty"`
	EndDate           *time.Time            `json:"end_date,omitempty"`
	PrimaryMetric     string                `json:"primary_metric,omitempty"`
	SecondaryMetrics  []string              `json:"secondary_metrics,omitempty"`
	SignificanceLevel float64               `json:"significance_level,omitempty" validate:"min=0,max=1"`
	MinimumSampleSize int                   `json:"minimum_sample_size,omitempty" validate:"min=0"`
	Targeting         *models.TargetingRule `json:"targeting,omitempty"`
	CreatedBy         string                `json:"created_by,omitempty"`
}

// Registry validates and persists experiments.
type Registry struct {
	store store.Store
	clock func() time.Time
}

// New creates a registry backed by the given store.
func New(s store.Store) *Registry {
	return &Registry{store: s, clock: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the registry clock. Test hook.
func (r *Registry) WithClock(clock func() time.Time) *Registry {
	r.clock = clock
	return r
}

// Create validates the config and persists a new draft experiment.
// Returns a *models.ValidationError when the config is malformed; the
// experiment is not persisted in that case.
func (r *Registry) Create(ctx context.Context, cfg Config) (*models.Experiment, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	id := cfg.ID
	if id == "" {
		id = generateID(r.clock())
	}

	topic := cfg.Topic
	if topic == "" {
		topic = models.TopicAll
	}
	primaryMetric := cfg.PrimaryMetric
	if primaryMetric == "" {
		primaryMetric = "conversion"
	}
	significanceLevel := cfg.SignificanceLevel
	if significanceLevel == 0 {
		significanceLevel = DefaultSignificanceLevel
	}
	minimumSampleSize := cfg.MinimumSampleSize
	if minimumSampleSize == 0 {
		minimumSampleSize = DefaultMinimumSampleSize
	}

	exp := &models.Experiment{
		ID:                id,
		Name:              cfg.Name,
		Description:       cfg.Description,
		TemplateType:      cfg.TemplateType,
		Topic:             topic,
		Variants:          append([]models.Variant(nil), cfg.Variants...),
		Status:            models.StatusDraft,
		StartDate:         cfg.StartDate,
		EndDate:           cfg.EndDate,
		PrimaryMetric:     primaryMetric,
		SecondaryMetrics:  append([]string(nil), cfg.SecondaryMetrics...),
		SignificanceLevel: significanceLevel,
		MinimumSampleSize: minimumSampleSize,
		Targeting:         cfg.Targeting,
		CreatedAt:         r.clock(),
		CreatedBy:         cfg.CreatedBy,
	}

	if err := r.Save(ctx, exp); err != nil {
		return nil, err
	}
	return exp, nil
}

// Get retrieves an experiment by ID. Returns models.ErrExperimentNotFound
// when no experiment exists for the ID.
func (r *Registry) Get(ctx context.Context, id string) (*models.Experiment, error) {
	var exp models.Experiment
	err := r.store.Get(ctx, experimentKeyPrefix+id, &exp)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, models.ErrExperimentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load experiment %s: %w", id, err)
	}
	return &exp, nil
}

// Save persists the experiment, replacing any existing definition.
func (r *Registry) Save(ctx context.Context, exp *models.Experiment) error {
	if err := r.store.Set(ctx, experimentKeyPrefix+exp.ID, exp); err != nil {
		return fmt.Errorf("save experiment %s: %w", exp.ID, err)
	}
	return nil
}

// List returns all experiments in key order.
func (r *Registry) List(ctx context.Context) ([]*models.Experiment, error) {
	keys, err := r.store.ListKeys(ctx, experimentKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}

	experiments := make([]*models.Experiment, 0, len(keys))
	for _, key := range keys {
		var exp models.Experiment
		if err := r.store.Get(ctx, key, &exp); err != nil {
			// A concurrently deleted key is not fatal to listing.
			if errors.Is(err, store.ErrKeyNotFound) {
				continue
			}
			return nil, fmt.Errorf("load %s: %w", key, err)
		}
		experiments = append(experiments, &exp)
	}
	return experiments, nil
}

// validateConfig enforces the creation rules: name and template type
// present, at least two variants, weights summing to exactly 100.
func validateConfig(cfg Config) error {
	if cfg.Name == "" {
		return &models.ValidationError{Rule: models.RuleNameRequired, Message: "experiment name is required"}
	}
	if cfg.TemplateType == "" {
		return &models.ValidationError{Rule: models.RuleTemplateTypeRequired, Message: "template type is required"}
	}
	if len(cfg.Variants) < 2 {
		return &models.ValidationError{
			Rule:    models.RuleMinimumVariants,
			Message: fmt.Sprintf("experiment requires at least 2 variants, got %d", len(cfg.Variants)),
		}
	}

	total := 0
	for _, v := range cfg.Variants {
		total += v.Weight
	}
	if total != 100 {
		return &models.ValidationError{
			Rule:    models.RuleWeightSum,
			Message: fmt.Sprintf("variant weights must sum to exactly 100, got %d", total),
		}
	}

	if verr := validation.ValidateStruct(&cfg); verr != nil {
		return &models.ValidationError{Rule: models.RuleFieldConstraint, Message: verr.Error()}
	}
	return nil
}

// generateID builds a unique experiment ID from a timestamp plus a
// random suffix, avoiding any central sequence.
func generateID(now time.Time) string {
	return fmt.Sprintf("exp_%d_%s", now.UnixMilli(), uuid.New().String()[:8])
}
