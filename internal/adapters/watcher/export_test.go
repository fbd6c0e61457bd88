// export_test.go exports private functions for white-box testing.
package watcher

import (
	"github.com/fsnotify/fsnotify"
	"go.trai.ch/weft/internal/core/ports"
)

// ConvertEvent exports event conversion for testing.
func (w *Watcher) ConvertEvent(event fsnotify.Event) *ports.WatchEvent {
	return w.convertEvent(event)
}
