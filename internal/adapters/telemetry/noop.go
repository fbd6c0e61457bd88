// Package telemetry provides tracer implementations for load progress.
package telemetry

import (
	"context"

	"go.trai.ch/weft/internal/core/ports"
)

// Noop is a Tracer that discards everything. Used when no progress frontend
// is attached.
type Noop struct{}

var _ ports.Tracer = Noop{}

// StartFile returns a span that discards everything.
func (Noop) StartFile(ctx context.Context, _ string) (context.Context, ports.Span) {
	return ctx, noopSpan{}
}

// EmitProgress discards the counters.
func (Noop) EmitProgress(context.Context, int, int) {}

type noopSpan struct{}

func (noopSpan) Write(p []byte) (int, error) { return len(p), nil }
func (noopSpan) End()                        {}
func (noopSpan) RecordError(error)           {}
func (noopSpan) SetAttribute(string, any)    {}
