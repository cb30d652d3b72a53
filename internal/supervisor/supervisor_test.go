// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package supervisor

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type countingCheckpointer struct {
	calls atomic.Int64
}

func (c *countingCheckpointer) Checkpoint(ctx context.Context) error {
	c.calls.Add(1)
	return nil
}

func TestCheckpointService_TicksAndFlushesOnShutdown(t *testing.T) {
	target := &countingCheckpointer{}
	svc := NewCheckpointService(target, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(70 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Service did not stop on cancel")
	}

	// At least two ticks plus the shutdown flush.
	if got := target.calls.Load(); got < 3 {
		t.Errorf("Expected at least 3 checkpoints, got %d", got)
	}
}

type blockingService struct {
	started chan struct{}
}

func (s *blockingService) Serve(ctx context.Context) error {
	close(s.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestTree_RunsServices(t *testing.T) {
	tree := NewTree(slog.Default(), DefaultTreeConfig())

	eventSvc := &blockingService{started: make(chan struct{})}
	apiSvc := &blockingService{started: make(chan struct{})}
	tree.AddEventService(eventSvc)
	tree.AddAPIService(apiSvc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	for _, started := range []chan struct{}{eventSvc.started, apiSvc.started} {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("Service did not start under supervision")
		}
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("Tree did not stop on cancel")
	}
}
