package progrock

import (
	"fmt"

	"github.com/vito/progrock"
	"go.trai.ch/weft/internal/core/ports"
)

var _ ports.Span = (*Span)(nil)

// Span implements ports.Span wrapping *progrock.VertexRecorder.
type Span struct {
	vertex *progrock.VertexRecorder
	err    error
}

// Write captures output attributed to this file load.
func (s *Span) Write(p []byte) (int, error) {
	return s.vertex.Stdout().Write(p)
}

// RecordError records an error; the vertex is marked failed on End.
func (s *Span) RecordError(err error) {
	s.err = err
}

// SetAttribute attaches a key-value pair to the span's output.
func (s *Span) SetAttribute(key string, value any) {
	_, _ = fmt.Fprintf(s.vertex.Stdout(), "%s=%v\n", key, value)
}

// End completes the span.
func (s *Span) End() {
	s.vertex.Done(s.err)
}
