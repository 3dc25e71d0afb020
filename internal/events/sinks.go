// Package events provides EventSink implementations that fan registry events
// out to structured logs, the audit store, and the redis event bus. Sinks
// never fail the operation that emitted the event; delivery errors are
// logged and dropped.
package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/harborfi/vaultguard/internal/domain"
)

// Channel is the pub/sub channel registry events are published on.
const Channel = "registry.events"

// Stream is the durable stream registry events are appended to.
const Stream = "registry:events"

// LogSink writes every event to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink on the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With(slog.String("component", "events"))}
}

// Emit logs the event at info level.
func (s *LogSink) Emit(ctx context.Context, ev domain.Event) {
	s.logger.InfoContext(ctx, "registry event",
		slog.String("event_id", ev.ID),
		slog.String("kind", string(ev.Kind)),
		slog.Any("fields", ev.Fields),
	)
}

// AuditSink records every event in the append-only audit log.
type AuditSink struct {
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewAuditSink creates an AuditSink over the given store.
func NewAuditSink(audit domain.AuditStore, logger *slog.Logger) *AuditSink {
	return &AuditSink{
		audit:  audit,
		logger: logger.With(slog.String("component", "events")),
	}
}

// Emit appends the event to the audit log.
func (s *AuditSink) Emit(ctx context.Context, ev domain.Event) {
	detail := map[string]any{"event_id": ev.ID, "at": ev.At}
	for k, v := range ev.Fields {
		detail[k] = v
	}
	if err := s.audit.Log(ctx, "registry."+string(ev.Kind), detail); err != nil {
		s.logger.WarnContext(ctx, "audit sink dropped event",
			slog.String("event_id", ev.ID),
			slog.String("kind", string(ev.Kind)),
			slog.String("error", err.Error()),
		)
	}
}

// BusSink publishes every event to the redis bus: once over pub/sub for live
// subscribers and once onto the durable stream.
type BusSink struct {
	bus    domain.EventBus
	logger *slog.Logger
}

// NewBusSink creates a BusSink over the given bus.
func NewBusSink(bus domain.EventBus, logger *slog.Logger) *BusSink {
	return &BusSink{
		bus:    bus,
		logger: logger.With(slog.String("component", "events")),
	}
}

// Emit serializes the event as JSON and delivers it to the bus.
func (s *BusSink) Emit(ctx context.Context, ev domain.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.WarnContext(ctx, "bus sink marshal failed",
			slog.String("event_id", ev.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.bus.Publish(ctx, Channel, payload); err != nil {
		s.logger.WarnContext(ctx, "bus sink publish failed",
			slog.String("event_id", ev.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.bus.StreamAppend(ctx, Stream, payload); err != nil {
		s.logger.WarnContext(ctx, "bus sink stream append failed",
			slog.String("event_id", ev.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Multi fans one event out to several sinks in order.
type Multi []domain.EventSink

// NewMulti builds a Multi from the non-nil sinks.
func NewMulti(sinks ...domain.EventSink) Multi {
	out := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Emit delivers the event to every sink.
func (m Multi) Emit(ctx context.Context, ev domain.Event) {
	for _, s := range m {
		s.Emit(ctx, ev)
	}
}

// Compile-time interface checks.
var (
	_ domain.EventSink = (*LogSink)(nil)
	_ domain.EventSink = (*AuditSink)(nil)
	_ domain.EventSink = (*BusSink)(nil)
	_ domain.EventSink = (Multi)(nil)
)
