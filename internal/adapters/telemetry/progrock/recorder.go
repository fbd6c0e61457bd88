// Package progrock provides the Progrock implementation of the load-progress
// tracer.
package progrock

import (
	"context"
	"fmt"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/weft/internal/core/ports"
)

var _ ports.Tracer = (*Recorder)(nil)

// Recorder implements ports.Tracer on a progrock tape: one vertex per scene
// file load, plus a long-lived vertex carrying the aggregate progress.
type Recorder struct {
	w   progrock.Writer
	rec *progrock.Recorder

	progress *progrock.VertexRecorder
}

// New creates a new Recorder with a default tape.
func New() *Recorder {
	return NewRecorder(progrock.NewTape())
}

// NewRecorder creates a new Recorder with the given writer.
func NewRecorder(w progrock.Writer) *Recorder {
	return &Recorder{
		w:   w,
		rec: progrock.NewRecorder(w),
	}
}

// StartFile opens a vertex covering the load of a single scene file.
func (r *Recorder) StartFile(ctx context.Context, file string) (context.Context, ports.Span) {
	d := digest.FromString(file)
	v := r.rec.Vertex(d, "load "+file)
	return ctx, &Span{vertex: v}
}

// EmitProgress reports the current pending/total file counters.
func (r *Recorder) EmitProgress(_ context.Context, pending, total int) {
	if r.progress == nil {
		r.progress = r.rec.Vertex(digest.FromString("weft:progress"), "loading scene files")
	}
	_, _ = fmt.Fprintf(r.progress.Stdout(), "loaded %d/%d files\n", total-pending, total)
	if pending == 0 {
		r.progress.Done(nil)
		r.progress = nil
	}
}

// Close flushes and closes the recording session.
func (r *Recorder) Close() error {
	if c, ok := r.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
