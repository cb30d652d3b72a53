// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

// Command server runs the Experimentus HTTP service: experiment
// management, subject assignment, event tracking, and statistical
// results, supervised under a Suture tree.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/tomtom215/experimentus/internal/aggregator"
	"github.com/tomtom215/experimentus/internal/api"
	"github.com/tomtom215/experimentus/internal/assignment"
	"github.com/tomtom215/experimentus/internal/audit"
	"github.com/tomtom215/experimentus/internal/cache"
	"github.com/tomtom215/experimentus/internal/collector"
	"github.com/tomtom215/experimentus/internal/config"
	"github.com/tomtom215/experimentus/internal/engine"
	"github.com/tomtom215/experimentus/internal/eventbus"
	"github.com/tomtom215/experimentus/internal/logging"
	"github.com/tomtom215/experimentus/internal/registry"
	"github.com/tomtom215/experimentus/internal/store"
	"github.com/tomtom215/experimentus/internal/supervisor"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("store_path", cfg.Store.Path).
		Bool("in_memory", cfg.Store.InMemory).
		Bool("audit_enabled", cfg.Events.AuditEnabled).
		Msg("Starting Experimentus")

	st, err := store.NewBadgerStore(store.BadgerOptions{
		Dir:      cfg.Store.Path,
		InMemory: cfg.Store.InMemory,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := registry.New(st)

	assign := assignment.NewEngine(reg, cfg.Engine.CacheTTL)
	defer assign.Close()

	agg := aggregator.New(st)
	if err := agg.Restore(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to restore metrics checkpoints")
	}

	bus := eventbus.New(eventbus.Config{
		BufferSize: cfg.Events.BufferSize,
	}, eventbus.NewLoggerAdapter(logging.Logger()))
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	dedup := cache.NewLRUCache(cfg.Events.DedupCapacity, cfg.Events.DedupTTL)
	col := collector.New(assign, agg, bus, dedup)

	eng := engine.New(reg, assign, agg, col)

	auditLog := audit.NewLog(st)
	handlers := api.NewHandlers(eng, auditLog)

	routerCfg := api.DefaultRouterConfig()
	routerCfg.CORSAllowedOrigins = cfg.Security.CORSOrigins
	routerCfg.RateLimitDisabled = cfg.Security.RateLimitDisabled
	routerCfg.ManagementRateLimit = cfg.Security.RateLimitReqs
	routerCfg.ManagementRateWindow = cfg.Security.RateLimitWindow
	router := api.NewRouter(routerCfg, handlers)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	slogLogger := slog.New(logging.NewSlogHandler())
	tree := supervisor.NewTree(slogLogger, supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	if cfg.Events.AuditEnabled {
		tree.AddEventService(eventbus.NewAuditConsumer(bus, auditLog))
	}
	tree.AddEventService(supervisor.NewCheckpointService(eng, cfg.Engine.CheckpointInterval))
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Msg("Supervisor tree starting")
	if err := tree.Serve(ctx); err != nil && err != context.Canceled {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}

	logging.Info().Msg("Experimentus stopped")
}
