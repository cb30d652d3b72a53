// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

// Package eventbus fans tracked events out to interested consumers
// over an in-process Watermill pub/sub. Publishing is best-effort: the
// hot tracking path never blocks on consumers, and a lost event only
// costs an audit-log entry, never a metric.
package eventbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/experimentus/internal/metrics"
	"github.com/tomtom215/experimentus/internal/models"
)

// TopicTrackedEvents carries every event accepted by the collector.
const TopicTrackedEvents = "experiment.events"

// Config tunes the in-process pub/sub.
type Config struct {
	// BufferSize is the per-subscriber channel depth. Consumers that
	// fall this far behind cause publishers to drop into the error
	// path rather than block.
	BufferSize int64
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{BufferSize: 1024}
}

// Bus is an in-process event bus for tracked events.
type Bus struct {
	pubsub     *gochannel.GoChannel
	serializer *Serializer
	mu         sync.RWMutex
	closed     bool
}

// New creates a Bus with the given configuration.
func New(cfg Config, logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.BufferSize,
	}, logger)

	return &Bus{
		pubsub:     pubsub,
		serializer: NewSerializer(),
	}
}

// PublishEvent serializes and publishes a tracked event. Failures are
// counted and returned but callers on the tracking path treat them as
// best-effort.
func (b *Bus) PublishEvent(ctx context.Context, event *models.TrackedEvent) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("event bus is closed")
	}
	b.mu.RUnlock()

	data, err := b.serializer.Marshal(event)
	if err != nil {
		metrics.AuditPublishFailures.Inc()
		return err
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set("experiment_id", event.ExperimentID)
	msg.Metadata.Set("event_type", event.EventType)

	if err := b.pubsub.Publish(TopicTrackedEvents, msg); err != nil {
		metrics.AuditPublishFailures.Inc()
		return fmt.Errorf("publish event %s: %w", event.EventID, err)
	}
	return nil
}

// Subscribe returns a message channel for the given topic. The channel
// closes when the context is canceled or the bus shuts down.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}
