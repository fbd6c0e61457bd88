package ports

import (
	"context"
	"io"
)

//go:generate mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks

// Tracer records load progress for consumption by progress frontends.
type Tracer interface {
	// StartFile opens a span covering the load of a single scene file.
	StartFile(ctx context.Context, file string) (context.Context, Span)
	// EmitProgress reports the current pending/total file counters.
	EmitProgress(ctx context.Context, pending, total int)
}

// Span represents the load of one scene file.
type Span interface {
	io.Writer
	// End completes the span.
	End()
	// RecordError records an error for the span.
	RecordError(err error)
	// SetAttribute adds a key-value pair to the span.
	SetAttribute(key string, value any)
}
