// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package eventbus

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/experimentus/internal/audit"
	"github.com/tomtom215/experimentus/internal/logging"
)

// AuditConsumer drains the tracked-event topic into the audit log. It
// implements suture.Service so the supervision tree restarts it if the
// subscription fails.
type AuditConsumer struct {
	bus *Bus
	log *audit.Log
}

// NewAuditConsumer creates a consumer writing to the given audit log.
func NewAuditConsumer(bus *Bus, log *audit.Log) *AuditConsumer {
	return &AuditConsumer{bus: bus, log: log}
}

// Serve consumes events until the context is canceled. Messages are
// acked on success and nacked on failure so the bus can redeliver.
func (c *AuditConsumer) Serve(ctx context.Context) error {
	messages, err := c.bus.Subscribe(ctx, TopicTrackedEvents)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", TopicTrackedEvents, err)
	}

	logging.Info().Str("topic", TopicTrackedEvents).Msg("Audit consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.processMessage(ctx, msg)
		}
	}
}

func (c *AuditConsumer) processMessage(ctx context.Context, msg *message.Message) {
	event, err := NewSerializer().Unmarshal(msg.Payload)
	if err != nil {
		// Malformed payloads can never succeed; ack to drop.
		logging.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Failed to decode tracked event")
		msg.Ack()
		return
	}

	if err := c.log.Append(ctx, event); err != nil {
		logging.Error().Err(err).
			Str("event_id", event.EventID).
			Str("experiment_id", event.ExperimentID).
			Msg("Failed to append audit event")
		msg.Nack()
		return
	}

	msg.Ack()
}

// String identifies the consumer in supervisor logs.
func (c *AuditConsumer) String() string {
	return "audit-consumer"
}
