// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

// Package config loads layered configuration with Koanf v2:
// built-in defaults, then an optional YAML file, then environment
// variables. Precedence: ENV > file > defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Events   EventsConfig   `koanf:"events"`
	Engine   EngineConfig   `koanf:"engine"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StoreConfig configures the Badger-backed config store.
type StoreConfig struct {
	// Path is the Badger data directory. Ignored when InMemory is set.
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// EventsConfig configures the event pipeline.
type EventsConfig struct {
	// BufferSize is the event bus channel depth per subscriber.
	BufferSize int64 `koanf:"buffer_size"`

	// AuditEnabled toggles the audit log consumer.
	AuditEnabled bool `koanf:"audit_enabled"`

	// DedupCapacity is the idempotency cache size.
	DedupCapacity int `koanf:"dedup_capacity"`

	// DedupTTL is how long an idempotency key suppresses duplicates.
	DedupTTL time.Duration `koanf:"dedup_ttl"`
}

// EngineConfig configures assignment and aggregation behavior.
type EngineConfig struct {
	// CacheTTL bounds how long a stopped experiment may keep serving
	// assignments from the hot-path cache.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// CheckpointInterval is how often aggregator counters are persisted.
	CheckpointInterval time.Duration `koanf:"checkpoint_interval"`
}

// SecurityConfig configures the HTTP hardening knobs.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks cross-field constraints the type system cannot.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required unless store.in_memory is set")
	}
	if c.Events.BufferSize <= 0 {
		return fmt.Errorf("events.buffer_size must be positive, got %d", c.Events.BufferSize)
	}
	if c.Engine.CacheTTL <= 0 {
		return fmt.Errorf("engine.cache_ttl must be positive, got %s", c.Engine.CacheTTL)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// Addr returns the server listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
