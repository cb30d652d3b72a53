// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/experimentus/internal/logging"
)

// HTTPService runs an http.Server under supervision with graceful
// shutdown on context cancellation.
type HTTPService struct {
	server          *http.Server
	shutdownTimeout time.Duration
}

// NewHTTPService wraps the server. A zero shutdownTimeout defaults to
// 10 seconds.
func NewHTTPService(server *http.Server, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve runs the server until the context is canceled, then shuts down
// gracefully.
func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	logging.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("HTTP server shutdown incomplete")
			return err
		}
		return ctx.Err()
	}
}

// String identifies the service in supervisor logs.
func (s *HTTPService) String() string {
	return "http-server"
}

// Checkpointer defines the periodic persistence hook the checkpoint
// service drives.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

// CheckpointService periodically persists aggregator counters so a
// restart resumes running experiments without zeroed metrics.
type CheckpointService struct {
	target   Checkpointer
	interval time.Duration
}

// NewCheckpointService creates the service. A zero interval defaults
// to 30 seconds.
func NewCheckpointService(target Checkpointer, interval time.Duration) *CheckpointService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &CheckpointService{target: target, interval: interval}
}

// Serve checkpoints on every tick and once more on shutdown.
func (s *CheckpointService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.target.Checkpoint(flushCtx); err != nil {
				logging.Error().Err(err).Msg("Final checkpoint failed")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := s.target.Checkpoint(ctx); err != nil {
				logging.Error().Err(err).Msg("Periodic checkpoint failed")
			}
		}
	}
}

// String identifies the service in supervisor logs.
func (s *CheckpointService) String() string {
	return "metrics-checkpointer"
}
