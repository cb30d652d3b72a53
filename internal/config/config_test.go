// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8086 {
		t.Errorf("Expected default port 8086, got %d", cfg.Server.Port)
	}
	if cfg.Engine.CacheTTL != 2*time.Minute {
		t.Errorf("Expected default cache TTL 2m, got %s", cfg.Engine.CacheTTL)
	}
	if !cfg.Events.AuditEnabled {
		t.Error("Expected audit enabled by default")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected json logging, got %q", cfg.Logging.Format)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("EXPERIMENTUS_SERVER__PORT", "9090")
	t.Setenv("EXPERIMENTUS_LOGGING__LEVEL", "debug")
	t.Setenv("EXPERIMENTUS_STORE__IN_MEMORY", "true")
	t.Setenv("EXPERIMENTUS_SECURITY__CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Env override lost: port %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Env override lost: level %q", cfg.Logging.Level)
	}
	if !cfg.Store.InMemory {
		t.Error("Env override lost: in_memory")
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORS origins not split: %v", cfg.Security.CORSOrigins)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 7777\nengine:\n  cache_ttl: 30s\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("File override lost: port %d", cfg.Server.Port)
	}
	if cfg.Engine.CacheTTL != 30*time.Second {
		t.Errorf("File override lost: cache_ttl %s", cfg.Engine.CacheTTL)
	}
	// Untouched fields keep their defaults.
	if cfg.Events.BufferSize != 1024 {
		t.Errorf("Default lost: buffer_size %d", cfg.Events.BufferSize)
	}
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7777\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("EXPERIMENTUS_SERVER__PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Env should beat file: port %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"missing store path", func(c *Config) { c.Store.Path = ""; c.Store.InMemory = false }},
		{"zero buffer", func(c *Config) { c.Events.BufferSize = 0 }},
		{"zero cache ttl", func(c *Config) { c.Engine.CacheTTL = 0 }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	if err := defaultConfig().Validate(); err != nil {
		t.Errorf("Defaults must validate: %v", err)
	}
}
