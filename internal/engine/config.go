package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// Config is the session configuration recognized at session start
// (spec.md §6).
type Config struct {
	// ID identifies this session for logging/grouping.
	ID string
	// TraceCtx seeds the session's root telemetry span, if the caller
	// already has a trace in flight (e.g. the signaling request that
	// spawned this session).
	TraceCtx context.Context //nolint:containedctx
	// TelemetryLabel is attached to every span this session creates.
	TelemetryLabel []attribute.KeyValue
	// DisplayManager, when true, makes the Routing Graph Builder choose a
	// Filter Tee instead of a Push Tee for non-simulcast tracks
	// (spec.md §3, §4.5).
	DisplayManager bool
}
